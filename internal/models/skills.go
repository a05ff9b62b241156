package models

// Skill is a static catalog entry describing one scored competency.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ScoreMap maps skill id to a score in [0, 100].
type ScoreMap map[string]int

// Clone returns an independent copy of the map.
func (m ScoreMap) Clone() ScoreMap {
	out := make(ScoreMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type ContentType string

const (
	ContentCourse   ContentType = "Course"
	ContentAction   ContentType = "Action"
	ContentWorkshop ContentType = "Workshop"
	ContentCert     ContentType = "Cert"
)

// ContentItem is a learning catalog entry, read-only at runtime.
type ContentItem struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Type     ContentType `json:"type"`
	SkillID  string      `json:"skill_id"`
	MinLevel int         `json:"min_level"`
	XP       int         `json:"xp"`
	Duration string      `json:"duration"`
}

// CompanyNeed flags a skill the organization wants more of.
type CompanyNeed struct {
	SkillID  string `json:"skill_id"`
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

// CourseProgress tracks per-item XP. Level is always floor(xp/50)+1 and is
// recomputed on every mutation, never stored independently.
type CourseProgress struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
}
