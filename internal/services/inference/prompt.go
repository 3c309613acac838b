package inference

import (
	"fmt"

	"swingcoach/internal/analysis"
)

const systemPrompt = `You are a golf swing analyst. You must respond with a single JSON object and nothing else.
Angles are in degrees. Times are milliseconds from the start of the clip. Speeds are mph and distances are yards.
clubPath must be one of "inside-out", "square" or "outside-in".`

func clubLabel(club analysis.Club) string {
	if club == "" {
		return "unknown club"
	}
	return club.Label()
}

func videoPrompt(club analysis.Club) string {
	return fmt.Sprintf(`Analyze this golf swing hit with a %s.
Identify the address, top of backswing, impact and finish positions and measure the body angles at each.
Respond with JSON of this exact shape:
{
  "timestampsMs": {"address": 0, "top": 0, "impact": 0, "finish": 0},
  "addressAngles": {"spineAngle": 0, "shoulderTurn": 0, "hipTurn": 0, "leadArmAngle": 0},
  "topAngles": {"spineAngle": 0, "shoulderTurn": 0, "hipTurn": 0, "leadArmAngle": 0},
  "impactAngles": {"spineAngle": 0, "shoulderTurn": 0, "hipTurn": 0, "leadArmAngle": 0},
  "finishAngles": {"spineAngle": 0, "shoulderTurn": 0, "hipTurn": 0, "leadArmAngle": 0},
  "clubSpeedMph": 0,
  "clubPath": "square",
  "carryYards": 0
}`, clubLabel(club))
}

func measurementPrompt(club analysis.Club, measurements string) string {
	return fmt.Sprintf(`These body angles were measured from a golf swing hit with a %s:
%s
Estimate the club head speed, club path and carry distance.
Respond with JSON of this exact shape:
{"clubSpeedMph": 0, "clubPath": "square", "carryYards": 0}`, clubLabel(club), measurements)
}

func coachingPrompt(club analysis.Club, result string) string {
	return fmt.Sprintf(`Write two coaching roadmaps for this %s swing analysis:
%s
The "Ideal" roadmap moves the player toward textbook positions. The "Playable" roadmap keeps the player's own pattern and fixes only what costs distance or consistency.
Respond with JSON of this exact shape:
{"roadmaps": [
  {"goal": "Ideal", "narrative": "...", "drills": ["..."]},
  {"goal": "Playable", "narrative": "...", "drills": ["..."]}
]}`, clubLabel(club), result)
}

const launchMonitorPrompt = `This is a screenshot of a golf launch monitor.
Read the ball speed, club speed, launch angle, spin rate, carry and total distance.
Use null for any value that is not shown or not legible. Convert km/h to mph and meters to yards.
Respond with JSON of this exact shape:
{"ballSpeedMph": null, "clubSpeedMph": null, "launchAngleDeg": null, "spinRateRpm": null, "carryYards": null, "totalYards": null}`
