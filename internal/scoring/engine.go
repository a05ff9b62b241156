package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/innotech/hrbot/internal/models"
)

// ErrNoScores is returned when a score map with no entries is given to
// ComputeLevelStats.
var ErrNoScores = errors.New("score map is empty")

// LevelStats is the derived leveling view of a full score map.
type LevelStats struct {
	Average           int
	Level             int
	PointsToNextLevel int
	ProgressPercent   float64
}

// ComputeLevelStats derives the employee level from the average score.
// An average of 50 is level 5; at 46 the employee needs 4 points for the
// next level and is 60% through the current band.
func ComputeLevelStats(scores models.ScoreMap) (LevelStats, error) {
	if len(scores) == 0 {
		return LevelStats{}, ErrNoScores
	}

	sum := 0
	for _, v := range scores {
		sum += v
	}
	average := int(math.Round(float64(sum) / float64(len(scores))))
	level := average / 10

	return LevelStats{
		Average:           average,
		Level:             level,
		PointsToNextLevel: (level+1)*10 - average,
		ProgressPercent:   float64(average-level*10) / 10 * 100,
	}, nil
}

// SkillLevel is the display band for a single skill score.
type SkillLevel struct {
	Label string
	Tier  int
}

// ClassifySkillLevel bands a score into Novice/Apprentice/Contributor/Master.
// Bands are inclusive on their lower bound and cover [0,100] with no overlap.
func ClassifySkillLevel(score int) SkillLevel {
	switch {
	case score >= 76:
		return SkillLevel{Label: "Master", Tier: 3}
	case score >= 41:
		return SkillLevel{Label: "Contributor", Tier: 2}
	case score >= 20:
		return SkillLevel{Label: "Apprentice", Tier: 1}
	default:
		return SkillLevel{Label: "Novice", Tier: 0}
	}
}

// Row is a ranked shelf of catalog items.
type Row struct {
	Title    string
	Subtitle string
	Items    []models.ContentItem
}

// Engine ranks the static content catalog against an employee's scores.
type Engine struct {
	skills  []models.Skill
	catalog []models.ContentItem
	needs   []models.CompanyNeed
}

func NewEngine(skills []models.Skill, catalog []models.ContentItem, needs []models.CompanyNeed) *Engine {
	return &Engine{skills: skills, catalog: catalog, needs: needs}
}

// NewDefaultEngine builds an engine over the reference deployment catalog.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultSkills, DefaultCatalog, DefaultCompanyNeeds)
}

// RankRecommendations builds the four shelves in fixed priority order.
// Rows with no items are omitted. Ordering is fully determined by skill
// declaration order and catalog order; there is no randomness.
func (e *Engine) RankRecommendations(scores models.ScoreMap, employeeName string) []Row {
	var rows []Row

	// 1. Top Picks: the employee's strongest skill. First max wins on ties,
	// scanning skills in declaration order.
	topSkill, ok := e.topSkill(scores)
	if ok {
		var picks []models.ContentItem
		for _, item := range e.catalog {
			if item.SkillID == topSkill.ID && scores[item.SkillID] >= item.MinLevel {
				picks = append(picks, item)
			}
		}
		if len(picks) > 0 {
			rows = append(rows, Row{
				Title:    fmt.Sprintf("Top Picks for %s", employeeName),
				Subtitle: fmt.Sprintf("Because you're strong in %s", topSkill.Name),
				Items:    picks,
			})
		}
	}

	// 2. Company priorities: every item for a needed skill, regardless of
	// the employee's current score. Deduplicated by id, first occurrence wins.
	var trending []models.ContentItem
	seen := make(map[string]bool)
	for _, need := range e.needs {
		for _, item := range e.catalog {
			if item.SkillID == need.SkillID && !seen[item.ID] {
				seen[item.ID] = true
				trending = append(trending, item)
			}
		}
	}
	if len(trending) > 0 {
		rows = append(rows, Row{
			Title:    "Company Priorities & Trending",
			Subtitle: "Highly requested skills across the org",
			Items:    trending,
		})
	}

	// 3. Quick wins: short-duration items.
	var quick []models.ContentItem
	quickIDs := make(map[string]bool)
	for _, item := range e.catalog {
		if isQuickWin(item.Duration) {
			quick = append(quick, item)
			quickIDs[item.ID] = true
		}
	}
	if len(quick) > 0 {
		rows = append(rows, Row{
			Title:    "Quick Wins (< 4 Hours)",
			Subtitle: "Learn something new in an afternoon",
			Items:    quick,
		})
	}

	// 4. New releases: everything that didn't land in quick wins. Items from
	// rows 1-2 may reappear here; only quick-win membership excludes.
	var others []models.ContentItem
	for _, item := range e.catalog {
		if !quickIDs[item.ID] {
			others = append(others, item)
		}
	}
	if len(others) > 0 {
		rows = append(rows, Row{Title: "New Releases", Items: others})
	}

	return rows
}

func (e *Engine) topSkill(scores models.ScoreMap) (models.Skill, bool) {
	var best models.Skill
	bestScore := -1
	for _, skill := range e.skills {
		if s := scores[skill.ID]; s > bestScore {
			best = skill
			bestScore = s
		}
	}
	return best, bestScore >= 0
}

// isQuickWin keeps the original textual duration heuristic: anything with a
// minutes component, or exactly 1h/2h/3h, with 4h/5h excluded outright.
// Strings outside that closed set (e.g. "90 min" vs "1h 30m") are
// misclassified; kept as-is for behavioral parity.
func isQuickWin(duration string) bool {
	if duration == "" {
		return false
	}
	if duration == "4h" || duration == "5h" {
		return false
	}
	return strings.Contains(duration, "m") || duration == "1h" || duration == "2h" || duration == "3h"
}

// ApplyCourseCompletion credits one completion of item: +10 to the owning
// skill score clamped at 100, +10 XP on the item with the level recomputed.
// Input maps are not mutated; the caller persists the returned state.
func ApplyCourseCompletion(scores models.ScoreMap, progress map[string]models.CourseProgress, item models.ContentItem) (models.ScoreMap, map[string]models.CourseProgress, bool) {
	newScores := scores.Clone()
	s := newScores[item.SkillID] + 10
	if s > 100 {
		s = 100
	}
	newScores[item.SkillID] = s

	newProgress := make(map[string]models.CourseProgress, len(progress)+1)
	for k, v := range progress {
		newProgress[k] = v
	}
	current, ok := newProgress[item.ID]
	if !ok {
		current = models.CourseProgress{Level: 1, XP: 0}
	}
	current.XP += 10
	newLevel := current.XP/50 + 1
	leveledUp := newLevel > current.Level
	current.Level = newLevel
	newProgress[item.ID] = current

	return newScores, newProgress, leveledUp
}
