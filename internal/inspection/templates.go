package inspection

import "inspectline/internal/domain"

var exitTemplate = []domain.Task{
	{ID: "1", Name: "טיפול בבריכה: כלור, מים, רובוט ופילטר"},
	{ID: "2", Name: "טיפול בגקוזי: כלור, מים, רובוט ופילטר"},
	{ID: "3", Name: "ניקיון חדרים"},
	{ID: "4", Name: "ניקיון מטבח"},
	{ID: "5", Name: "ניקיון שירותים"},
	{ID: "6", Name: "פינוי זבל לפח אשפה פנים וחוץ הוילה"},
	{ID: "7", Name: "בדיקת מכשירים, ריהוט ומלאי"},
	{ID: "8", Name: "כיבוי אורות ונעילת דלת ראשית"},
}

var cleaningTemplate = []domain.Task{
	// kitchen
	{ID: "1", Name: "מכונת קפה, לנקות ולהחליף פילטר קפה"},
	{ID: "2", Name: "קפה תה סוכר וכו׳"},
	{ID: "3", Name: "להעביר סמרטוט במתקן מים"},
	{ID: "4", Name: "מקרר – בפנים ובחוץ"},
	{ID: "5", Name: "תנור – בפנים ובחוץ"},
	{ID: "6", Name: "כיריים וגריל"},
	{ID: "7", Name: "מיקרו"},
	{ID: "8", Name: "כיור"},
	{ID: "9", Name: "כלים – לשטוף ליבש ולהחזיר לארון"},
	{ID: "10", Name: "לבדוק שכל הכלים נקיים"},
	{ID: "11", Name: "לבדוק שיש לפחות 20 כוסות אוכל מכל דבר"},
	{ID: "12", Name: "ארונות מטבח – לפתוח ולראות שאין דברים להוציא דברים לא קשורים"},
	{ID: "13", Name: "להעביר סמרטוט על הדלתות מטבח בחוץ"},
	{ID: "14", Name: "להעביר סמרטוט על הפח ולראות שנקי"},
	{ID: "15", Name: "פלטת שבת ומיחם מים חמים – לראות שאין אבן"},
	{ID: "16", Name: "סכו״ם, כלים, סמרטוט, סקוֹץ׳ חדשים לאורחים"},
	{ID: "17", Name: "סבון"},
	// living room
	{ID: "18", Name: "סלון שטיפה יסודית גם מתחת לספות ולשולחן, להזיז כורסאות ולבדוק שאין פירורים של אוכל"},
	{ID: "19", Name: "שולחן אוכל וספסלים (לנקות בשפריצר ולהעביר סמרטוט)"},
	{ID: "20", Name: "סלון – לנגב אבק ולהעביר סמרטוט גם על הספה. כיריות לנקות לסדר יפה"},
	{ID: "21", Name: "שולחן אוכל וספסלים – להעביר סמרטוט נקי עם תריס"},
	{ID: "22", Name: "חלונות ותריסים – עם ספריי חלונות וסמרטוט נקי. שלא יהיו סימנים. מסילות לנקות"},
	// hallway
	{ID: "23", Name: "מסדרון – לנגב בחוץ שטיחים. לנקות מסילות בחלונות. לנקות חלונות"},
	// yard
	{ID: "24", Name: "טיפול ברזים וניקוי"},
	{ID: "25", Name: "להשקות עציצים בכל המתחם"},
	{ID: "26", Name: "פינת מנגל – לרוקן פחים ולנקות רשת, וכל אזור המנגל"},
	{ID: "27", Name: "לנקות דשא ולסדר פינות ישיבה"},
	{ID: "28", Name: "שולחן חוץ – להעביר סמרטוט עם חומר. כיסאות נקיים"},
	{ID: "29", Name: "שטיפה לרצפה בחוץ"},
	{ID: "30", Name: "לרוקן את הפחים, לשים שקית חדשה"},
	{ID: "31", Name: "להעביר סמרטוט על הפחים ולשים שקיות"},
	// bedrooms
	{ID: "32", Name: "חדרי שינה – להחליף מצעים ולסדר מיטות"},
	{ID: "33", Name: "חדרי שינה – לנגב אבק על שידות וארונות"},
	{ID: "34", Name: "חדרי שינה – לבדוק מתחת למיטות ובארונות שלא נשארו חפצים"},
	{ID: "35", Name: "חדרי שינה – שטיפת רצפה"},
	// bathrooms
	{ID: "36", Name: "מקלחות – לנקות קירות, ברזים וזכוכית"},
	{ID: "37", Name: "אסלות – ניקוי יסודי וחיטוי"},
	{ID: "38", Name: "כיורים ומראות בחדרי הרחצה"},
	{ID: "39", Name: "מגבות נקיות, נייר טואלט וסבון בכל חדר רחצה"},
}

var monthlyTemplate = []domain.Task{
	{ID: "1", Name: "בדיקת תקינות מערכות חשמל"},
	{ID: "2", Name: "בדיקת תקינות מערכות מים"},
	{ID: "3", Name: "בדיקת תקינות מערכות גז"},
	{ID: "4", Name: "בדיקת תקינות מזגנים"},
	{ID: "5", Name: "בדיקת תקינות דודי שמש"},
	{ID: "6", Name: "בדיקת תקינות מערכות אבטחה"},
	{ID: "7", Name: "בדיקת תקינות מערכות תאורה"},
	{ID: "8", Name: "בדיקת תקינות דלתות וחלונות"},
	{ID: "9", Name: "בדיקת תקינות ריהוט וציוד"},
	{ID: "10", Name: "בדיקת תקינות מערכות ניקוז"},
	{ID: "11", Name: "בדיקת תקינות מערכות אוורור"},
	{ID: "12", Name: "בדיקת תקינות מערכות כיבוי אש"},
	{ID: "13", Name: "בדיקת תקינות מערכות אינטרנט"},
	{ID: "14", Name: "בדיקת תקינות מערכות טלוויזיה"},
	{ID: "15", Name: "בדיקת תקינות מערכות מיזוג"},
	{ID: "16", Name: "בדיקת תקינות מערכות מים חמים"},
	{ID: "17", Name: "בדיקת תקינות מערכות תאורה חוץ"},
	{ID: "18", Name: "בדיקת תקינות מערכות השקיה"},
	{ID: "19", Name: "בדיקת תקינות מערכות בריכה"},
	{ID: "20", Name: "בדיקת תקינות מערכות גקוזי"},
}

// Template returns a fresh copy of the canonical checklist for kind, every
// task unchecked. Unknown kinds yield nil.
func Template(kind domain.Kind) []domain.Task {
	var src []domain.Task
	switch kind {
	case domain.KindExit:
		src = exitTemplate
	case domain.KindCleaning:
		src = cleaningTemplate
	case domain.KindMonthly:
		src = monthlyTemplate
	default:
		return nil
	}
	out := make([]domain.Task, len(src))
	for i, t := range src {
		out[i] = domain.Task{ID: t.ID, Name: t.Name}
	}
	return out
}
