package scoring

import "github.com/innotech/hrbot/internal/models"

// Reference deployment data. Skills and catalog are immutable after load;
// declaration order is significant because recommendation rows and the
// top-skill tie break scan in this order.

var DefaultSkills = []models.Skill{
	{ID: "s1", Name: "Technical Mastery", Description: "Expertise in core tech stack"},
	{ID: "s2", Name: "Delivery & Execution", Description: "Reliability and speed of output"},
	{ID: "s3", Name: "Communication", Description: "Clarity in writing and speaking"},
	{ID: "s4", Name: "Leadership & Mentorship", Description: "Helping others grow"},
	{ID: "s5", Name: "Strategic Thinking", Description: "Understanding the big picture"},
	{ID: "s6", Name: "Adaptability", Description: "Speed of learning new context"},
}

var InitialScores = models.ScoreMap{
	"s1": 75,
	"s2": 82,
	"s3": 45,
	"s4": 30,
	"s5": 15,
	"s6": 60,
}

var DefaultCompanyNeeds = []models.CompanyNeed{
	{SkillID: "s5", Priority: "High", Reason: "Team needs more strategic input"},
	{SkillID: "s1", Priority: "Medium", Reason: "Maintain technical edge"},
}

var DefaultCatalog = []models.ContentItem{
	{ID: "c1", Title: "System Design Interview Guide", Type: models.ContentCourse, SkillID: "s1", MinLevel: 60, XP: 5, Duration: "2h 15m"},
	{ID: "c2", Title: "Lead a Tech Talk", Type: models.ContentAction, SkillID: "s3", MinLevel: 40, XP: 8, Duration: "1h"},
	{ID: "c3", Title: "Mentor a Junior Dev", Type: models.ContentAction, SkillID: "s4", MinLevel: 20, XP: 10, Duration: "Ongoing"},
	{ID: "c4", Title: "Product Strategy 101", Type: models.ContentCourse, SkillID: "s5", MinLevel: 0, XP: 5, Duration: "3h"},
	{ID: "c5", Title: "Rust for JS Developers", Type: models.ContentCourse, SkillID: "s6", MinLevel: 50, XP: 5, Duration: "5h"},
	{ID: "c6", Title: "Advanced GraphQL Patterns", Type: models.ContentCourse, SkillID: "s1", MinLevel: 70, XP: 8, Duration: "3h"},
	{ID: "c7", Title: "Negotiation for Engineers", Type: models.ContentWorkshop, SkillID: "s5", MinLevel: 0, XP: 5, Duration: "8h"},
	{ID: "c8", Title: "AWS Solutions Architect", Type: models.ContentCert, SkillID: "s1", MinLevel: 60, XP: 15, Duration: "30h"},
	{ID: "c9", Title: "Public Speaking Masterclass", Type: models.ContentCourse, SkillID: "s3", MinLevel: 30, XP: 6, Duration: "5h"},
	{ID: "c10", Title: "Full Stack Security Standards", Type: models.ContentCourse, SkillID: "s1", MinLevel: 50, XP: 12, Duration: "12h"},
	{ID: "c11", Title: "Mastering Enterprise Scalability", Type: models.ContentCourse, SkillID: "s2", MinLevel: 80, XP: 20, Duration: "8h"},
	{ID: "c12", Title: "Deep Dive into System Architecture", Type: models.ContentCourse, SkillID: "s1", MinLevel: 90, XP: 25, Duration: "15h"},
}

// ItemByID looks up a catalog entry by id.
func ItemByID(catalog []models.ContentItem, id string) (models.ContentItem, bool) {
	for _, item := range catalog {
		if item.ID == id {
			return item, true
		}
	}
	return models.ContentItem{}, false
}
