package inspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectline/internal/domain"
)

func TestTemplateSizes(t *testing.T) {
	sizes := map[domain.Kind]int{
		domain.KindExit:     8,
		domain.KindCleaning: 39,
		domain.KindMonthly:  20,
	}
	for kind, want := range sizes {
		tasks := Template(kind)
		require.Len(t, tasks, want, kind)
		seen := map[string]bool{}
		for _, task := range tasks {
			assert.False(t, task.Completed, "%s task %s starts checked", kind, task.ID)
			assert.NotEmpty(t, task.Name)
			assert.False(t, seen[task.ID], "%s duplicates id %s", kind, task.ID)
			seen[task.ID] = true
		}
	}
	assert.Nil(t, Template("weekly"))
}

func TestTemplateReturnsFreshCopy(t *testing.T) {
	first := Template(domain.KindExit)
	first[0].Completed = true
	first[0].Name = "changed"

	second := Template(domain.KindExit)
	assert.False(t, second[0].Completed)
	assert.NotEqual(t, "changed", second[0].Name)
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		kind domain.Kind
		task domain.Task
		want string
	}{
		{domain.KindCleaning, domain.Task{ID: "5", Name: "anything"}, "מטבח"},
		{domain.KindCleaning, domain.Task{ID: "23"}, "מסדרון"},
		{domain.KindCleaning, domain.Task{ID: "37"}, "חדרי רחצה"},
		{domain.KindCleaning, domain.Task{ID: "x1", Name: "לנקות את המקרר"}, "מטבח"},
		{domain.KindCleaning, domain.Task{ID: "x2", Name: "משהו אחר לגמרי"}, "אחר"},
		{domain.KindExit, domain.Task{ID: "2", Name: "טיפול בגקוזי: כלור, מים, רובוט ופילטר"}, "טיפול גקוזי"},
		{domain.KindExit, domain.Task{ID: "1", Name: "טיפול בבריכה: כלור, מים, רובוט ופילטר"}, "טיפול בריכה"},
		{domain.KindExit, domain.Task{ID: "8", Name: "כיבוי אורות ונעילת דלת ראשית"}, "כיבוי ונעילה"},
		{domain.KindMonthly, domain.Task{ID: "18"}, "מתקני חוץ"},
		{domain.KindMonthly, domain.Task{ID: "99", Name: "בדיקת חשמל"}, "תשתיות"},
		{"weekly", domain.Task{ID: "1"}, "אחר"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.kind, tc.task), "%s %s", tc.kind, tc.task.ID)
	}
}

func TestGroupKeepsEveryTaskInOrder(t *testing.T) {
	for _, kind := range domain.Kinds {
		tasks := Template(kind)
		groups := Group(kind, tasks)
		require.NotEmpty(t, groups)

		total := 0
		for _, g := range groups {
			require.NotEmpty(t, g.Tasks, "%s category %s is empty", kind, g.Name)
			total += len(g.Tasks)
		}
		assert.Equal(t, len(tasks), total, kind)
	}

	groups := Group(domain.KindCleaning, Template(domain.KindCleaning))
	assert.Equal(t, "מטבח", groups[0].Name)
	assert.Equal(t, "1", groups[0].Tasks[0].ID)
	assert.Len(t, groups[0].Tasks, 17)
}
