package posextract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swingcoach/internal/analysis"
	"swingcoach/internal/services"
	"swingcoach/internal/services/posextract"
	"swingcoach/internal/testsupport"
)

const measurementJSON = `{"timestampsMs": {"address": 0, "top": 900, "impact": 1150, "finish": 2000},
"addressAngles": {"spineAngle": 34.2, "shoulderTurn": 3.1, "hipTurn": 1.0, "leadArmAngle": 171.5},
"topAngles": {"spineAngle": 37.0, "shoulderTurn": 88.4, "hipTurn": 41.2, "leadArmAngle": 166.0},
"impactAngles": {"spineAngle": 35.5, "shoulderTurn": 18.9, "hipTurn": 38.7, "leadArmAngle": 173.2},
"finishAngles": {"spineAngle": 8.0, "shoulderTurn": 105.0, "hipTurn": 86.0, "leadArmAngle": 118.0},
"metadata": {"fps": 30.0, "totalFrames": 75, "totalDurationMs": 2500}}`

func setup(t *testing.T, body string) (*posextract.Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	script := testsupport.WriteScript(t, dir, "pose", body)
	video := filepath.Join(dir, "swing.mp4")
	testsupport.WriteFile(t, video, 64)
	return posextract.New(posextract.Settings{Command: script, Timeout: 5 * time.Second}, nil), video
}

func TestExtractParsesMeasurements(t *testing.T) {
	extractor, video := setup(t, `
echo "Downloading PoseLandmarker model..." >&2
cat <<'JSON'
`+measurementJSON+`
JSON`)

	m, err := extractor.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if m.Source != analysis.SourceLocal {
		t.Fatalf("expected local source, got %q", m.Source)
	}
	if m.Timestamps.Finish == nil || *m.Timestamps.Finish != 2000 {
		t.Fatalf("unexpected timestamps %+v", m.Timestamps)
	}
	if m.TopAngles == nil || m.TopAngles.ShoulderTurn != 88.4 {
		t.Fatalf("unexpected top angles %+v", m.TopAngles)
	}
	if m.Metadata == nil || m.Metadata.TotalFrames != 75 || m.Metadata.TotalDurationMs != 2500 {
		t.Fatalf("unexpected metadata %+v", m.Metadata)
	}
}

func TestExtractPassesArgsBeforeVideo(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := testsupport.WriteScript(t, dir, "python3", `
echo "$@" > "`+argsFile+`"
cat <<'JSON'
`+measurementJSON+`
JSON`)
	video := filepath.Join(dir, "clip.mp4")
	testsupport.WriteFile(t, video, 8)

	poseScript := filepath.Join(dir, "pose_analysis.py")
	testsupport.WriteFile(t, poseScript, 8)

	extractor := posextract.New(posextract.Settings{Command: script, Args: []string{poseScript}}, nil)
	if _, err := extractor.Extract(context.Background(), video); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != poseScript+" "+video {
		t.Fatalf("unexpected argv %q", got)
	}
}

func TestExtractErrorDocument(t *testing.T) {
	extractor, video := setup(t, `
echo '{"error": "Insufficient pose data: only 2 frames detected"}'
exit 1`)

	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Insufficient pose data") {
		t.Fatalf("expected program error in message, got %v", err)
	}
}

func TestExtractErrorFieldWithZeroExit(t *testing.T) {
	extractor, video := setup(t, `echo '{"error": "no golfer"}'`)

	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractionFailed) || !strings.Contains(err.Error(), "no golfer") {
		t.Fatalf("expected extraction failure, got %v", err)
	}
}

func TestExtractNonZeroExitUsesStderr(t *testing.T) {
	extractor, video := setup(t, `
echo "Traceback (most recent call last):" >&2
echo "ModuleNotFoundError: No module named 'mediapipe'" >&2
exit 2`)

	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "mediapipe") {
		t.Fatalf("expected stderr excerpt, got %v", err)
	}
}

func TestExtractMalformedStdout(t *testing.T) {
	extractor, video := setup(t, `echo "frame 1 of 75"`)

	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractMissingAngleIsRejected(t *testing.T) {
	extractor, video := setup(t, `echo '{"timestampsMs": {"address": 0}, "addressAngles": {"spineAngle": 1}}'`)

	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected partial angle set to fail, got %v", err)
	}
}

func TestExtractUnavailableCommand(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	testsupport.WriteFile(t, video, 8)

	extractor := posextract.New(posextract.Settings{Command: filepath.Join(dir, "missing-pose")}, nil)
	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractorUnavailable) {
		t.Fatalf("expected ErrExtractorUnavailable, got %v", err)
	}

	notExec := filepath.Join(dir, "pose.py")
	if err := os.WriteFile(notExec, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	extractor = posextract.New(posextract.Settings{Command: notExec}, nil)
	if _, err := extractor.Extract(context.Background(), video); !errors.Is(err, services.ErrExtractorUnavailable) {
		t.Fatalf("expected ErrExtractorUnavailable for non-executable, got %v", err)
	}

	unset := posextract.New(posextract.Settings{}, nil)
	if _, err := unset.Extract(context.Background(), video); !errors.Is(err, services.ErrExtractorUnavailable) {
		t.Fatalf("expected ErrExtractorUnavailable for empty command, got %v", err)
	}
}

func TestExtractMissingScriptIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "started")
	interpreter := testsupport.WriteScript(t, dir, "python3", `touch "`+marker+`"
exit 2`)
	video := filepath.Join(dir, "clip.mp4")
	testsupport.WriteFile(t, video, 8)

	extractor := posextract.New(posextract.Settings{Command: interpreter, Args: []string{filepath.Join(dir, "pose_analysis.py")}}, nil)
	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractorUnavailable) {
		t.Fatalf("expected ErrExtractorUnavailable, got %v", err)
	}
	if errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("missing script must not read as a failed extraction: %v", err)
	}
	if !strings.Contains(err.Error(), "pose_analysis.py") {
		t.Fatalf("expected the script path in the error, got %v", err)
	}
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Fatal("interpreter must not start without its script")
	}
}

func TestScriptArg(t *testing.T) {
	cases := map[string]struct {
		args []string
		want string
	}{
		"none":       {args: nil, want: ""},
		"flags only": {args: []string{"-u", "--fast"}, want: ""},
		"python":     {args: []string{"-u", "pose.PY"}, want: "pose.PY"},
		"first wins": {args: []string{"a.sh", "b.py"}, want: "a.sh"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := posextract.ScriptArg(tc.args); got != tc.want {
				t.Fatalf("ScriptArg(%q) = %q, want %q", tc.args, got, tc.want)
			}
		})
	}
}

func TestExtractTimeoutKillsProcessGroup(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "survivor")
	script := testsupport.WriteScript(t, dir, "pose", `
(sleep 2; touch "`+marker+`") &
sleep 30`)
	video := filepath.Join(dir, "clip.mp4")
	testsupport.WriteFile(t, video, 8)

	extractor := posextract.New(posextract.Settings{Command: script, Timeout: 200 * time.Millisecond}, nil)
	started := time.Now()
	_, err := extractor.Extract(context.Background(), video)
	if !errors.Is(err, services.ErrExtractionFailed) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 10*time.Second {
		t.Fatalf("extractor wait not bounded: %s", elapsed)
	}

	time.Sleep(2500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Fatal("background child survived cancellation")
	}
}

func TestExtractCanceledByCaller(t *testing.T) {
	extractor, video := setup(t, `sleep 30`)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := extractor.Extract(ctx, video)
	if !errors.Is(err, services.ErrExtractionFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled extraction, got %v", err)
	}
	if errors.Is(err, services.ErrTimeout) {
		t.Fatal("caller cancellation is not a timeout")
	}
}

func TestExtractMissingVideo(t *testing.T) {
	extractor, _ := setup(t, `exit 0`)
	_, err := extractor.Extract(context.Background(), "/does/not/exist.mp4")
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
