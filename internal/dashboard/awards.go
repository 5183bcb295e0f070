package dashboard

import "github.com/in-nis/classdash/internal/models"

const (
	AwardGold   = "gold"
	AwardSilver = "silver"
	AwardBronze = "bronze"

	goldThreshold   = 80.0
	silverThreshold = 67.0

	unknownMaterial = "Unknown Material"
)

// AwardTier classifies a score. A missing score counts as 0.
func AwardTier(score *float64) string {
	s := scoreOrZero(score)
	switch {
	case s >= goldThreshold:
		return AwardGold
	case s >= silverThreshold:
		return AwardSilver
	default:
		return AwardBronze
	}
}

func scoreOrZero(score *float64) float64 {
	if score == nil {
		return 0
	}
	return *score
}

// goldMedalCount counts the student's AI evaluations in a classroom that are
// tied to a material and scored gold.
func goldMedalCount(evals []models.SelfEvaluation, studentID, classroomID uint) int {
	n := 0
	for _, ev := range evals {
		if ev.StudentID != studentID || ev.ClassroomID != classroomID {
			continue
		}
		if ev.MaterialID == nil || ev.Score == nil || *ev.Score < goldThreshold {
			continue
		}
		n++
	}
	return n
}

// buildAwards groups AI evaluations by classroom then material. Rows without
// either id are skipped; later rows for the same key replace earlier ones.
func buildAwards(evals []models.SelfEvaluation) map[uint]map[uint]AwardInfo {
	awards := make(map[uint]map[uint]AwardInfo)
	for _, ev := range evals {
		if ev.ClassroomID == 0 || ev.MaterialID == nil || *ev.MaterialID == 0 {
			continue
		}

		byMaterial, ok := awards[ev.ClassroomID]
		if !ok {
			byMaterial = make(map[uint]AwardInfo)
			awards[ev.ClassroomID] = byMaterial
		}

		title := unknownMaterial
		if ev.Material != nil {
			title = ev.Material.Title
		}

		byMaterial[*ev.MaterialID] = AwardInfo{
			MaterialTitle: title,
			Score:         scoreOrZero(ev.Score),
			// attempts per material are not recorded by the schema
			Attempts: 1,
			Award:    AwardTier(ev.Score),
		}
	}
	return awards
}
