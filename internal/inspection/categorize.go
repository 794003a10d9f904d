package inspection

import (
	"strconv"
	"strings"

	"inspectline/internal/domain"
)

// idRange assigns numeric task ids lo..hi (inclusive) to a category.
type idRange struct {
	lo, hi   int
	category string
}

// nameRule assigns a category when the lowercased task name contains any of
// the listed fragments.
type nameRule struct {
	category  string
	fragments []string
}

type categorizer struct {
	order    []string
	ranges   []idRange
	rules    []nameRule
	fallback string
}

const defaultCategory = "אחר"

var categorizers = map[domain.Kind]categorizer{
	domain.KindExit: {
		order: []string{"טיפול בריכה", "טיפול גקוזי", "ניקיון", "בדיקות", "כיבוי ונעילה", defaultCategory},
		rules: []nameRule{
			// jacuzzi first: several jacuzzi tasks also mention pool equipment
			{category: "טיפול גקוזי", fragments: []string{"גקוזי", "ג'קוזי"}},
			{category: "טיפול בריכה", fragments: []string{"בריכה", "רכיה", "כלור", "רובוט", "פילטר", "בקווש", "רביצה"}},
			{category: "ניקיון", fragments: []string{"ניקיון", "פינוי", "זבל", "אשפה"}},
			{category: "בדיקות", fragments: []string{"בדיק", "תקינות", "מכשיר", "ריהוט", "מצעים", "מגבות", "מלאי"}},
			{category: "כיבוי ונעילה", fragments: []string{"כיבוי", "אורות", "נעיל", "דלת"}},
		},
		fallback: defaultCategory,
	},
	domain.KindCleaning: {
		order: []string{"מטבח", "סלון", "מסדרון", "חצר", "חדרי שינה", "חדרי רחצה", defaultCategory},
		ranges: []idRange{
			{lo: 1, hi: 17, category: "מטבח"},
			{lo: 18, hi: 22, category: "סלון"},
			{lo: 23, hi: 23, category: "מסדרון"},
			{lo: 24, hi: 31, category: "חצר"},
			{lo: 32, hi: 35, category: "חדרי שינה"},
			{lo: 36, hi: 39, category: "חדרי רחצה"},
		},
		rules: []nameRule{
			{category: "מטבח", fragments: []string{"מטבח", "מקרר", "תנור", "כיריים", "מיקרו", "קפה", "כלים"}},
			{category: "סלון", fragments: []string{"סלון", "ספה", "שולחן אוכל", "חלונות"}},
			{category: "מסדרון", fragments: []string{"מסדרון"}},
			{category: "חצר", fragments: []string{"חצר", "מנגל", "דשא", "עציצים", "חוץ", "פחים"}},
			{category: "חדרי שינה", fragments: []string{"חדרי שינה", "מיטות", "מצעים"}},
			{category: "חדרי רחצה", fragments: []string{"מקלח", "אסל", "רחצה", "טואלט"}},
		},
		fallback: defaultCategory,
	},
	domain.KindMonthly: {
		order: []string{"תשתיות", "נוחות", "בטיחות ומבנה", "מתקני חוץ", defaultCategory},
		ranges: []idRange{
			{lo: 1, hi: 5, category: "תשתיות"},
			{lo: 6, hi: 6, category: "בטיחות ומבנה"},
			{lo: 7, hi: 7, category: "תשתיות"},
			{lo: 8, hi: 9, category: "בטיחות ומבנה"},
			{lo: 10, hi: 11, category: "תשתיות"},
			{lo: 12, hi: 12, category: "בטיחות ומבנה"},
			{lo: 13, hi: 16, category: "נוחות"},
			{lo: 17, hi: 20, category: "מתקני חוץ"},
		},
		rules: []nameRule{
			{category: "מתקני חוץ", fragments: []string{"חוץ", "השקיה", "בריכה", "גקוזי"}},
			{category: "בטיחות ומבנה", fragments: []string{"אבטחה", "כיבוי אש", "דלתות", "ריהוט"}},
			{category: "נוחות", fragments: []string{"אינטרנט", "טלוויזיה", "מיזוג", "מים חמים"}},
			{category: "תשתיות", fragments: []string{"חשמל", "מים", "גז", "ניקוז", "אוורור"}},
		},
		fallback: defaultCategory,
	},
}

// Categorize places a task in a display category: id ranges first, name
// fragments second, the kind's default category otherwise.
func Categorize(kind domain.Kind, task domain.Task) string {
	c, ok := categorizers[kind]
	if !ok {
		return defaultCategory
	}
	return c.categorize(task)
}

func (c categorizer) categorize(task domain.Task) string {
	if n, err := strconv.Atoi(strings.TrimSpace(task.ID)); err == nil {
		for _, r := range c.ranges {
			if n >= r.lo && n <= r.hi {
				return r.category
			}
		}
	}
	name := NormalizeName(task.Name)
	for _, rule := range c.rules {
		for _, frag := range rule.fragments {
			if strings.Contains(name, frag) {
				return rule.category
			}
		}
	}
	return c.fallback
}

// Category is one display group of tasks.
type Category struct {
	Name  string
	Tasks []domain.Task
}

// Group buckets tasks by category in the kind's display order, skipping empty
// categories and keeping task order within each bucket.
func Group(kind domain.Kind, tasks []domain.Task) []Category {
	c, ok := categorizers[kind]
	if !ok {
		return []Category{{Name: defaultCategory, Tasks: domain.CloneTasks(tasks)}}
	}
	buckets := make(map[string][]domain.Task, len(c.order))
	for _, t := range tasks {
		name := c.categorize(t)
		buckets[name] = append(buckets[name], t)
	}
	var out []Category
	for _, name := range c.order {
		if len(buckets[name]) > 0 {
			out = append(out, Category{Name: name, Tasks: buckets[name]})
		}
	}
	return out
}
