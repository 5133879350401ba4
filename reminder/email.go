package reminder

import (
	"bytes"
	"fmt"
	"html/template"

	"taskplanner/model"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;background:#eeeeee;padding:20px">
<table width="680" cellpadding="0" cellspacing="0" border="0" align="center" style="background:#ffffff;padding:24px">
<tr><td><h1 style="margin:0 0 8px 0">Myday-Planner</h1>
<p>Hi {{.Name}}, here is your task digest for {{.Date}}.</p></td></tr>
{{if .Overdue}}
<tr><td><h2 style="color:#c62828">Overdue ({{len .Overdue}})</h2><ul>
{{range .Overdue}}<li><strong>{{.Title}}</strong> &middot; due {{.DeadlineDate}} {{.DeadlineTime}}</li>
{{end}}</ul></td></tr>
{{end}}
{{if .Upcoming}}
<tr><td><h2 style="color:#ef6c00">Due in the next 48 hours ({{len .Upcoming}})</h2><ul>
{{range .Upcoming}}<li><strong>{{.Title}}</strong> &middot; due {{.DeadlineDate}} {{.DeadlineTime}}</li>
{{end}}</ul></td></tr>
{{end}}
{{if .Link}}<tr><td><p><a href="{{.Link}}">Open your planner</a></p></td></tr>{{end}}
</table>
</body>
</html>
`))

type digestView struct {
	Name     string
	Date     string
	Overdue  []TaskSummary
	Upcoming []TaskSummary
	Link     string
}

// DigestSubject summarises the counts so the mail is useful from the inbox.
func DigestSubject(b *UserBucket) string {
	return fmt.Sprintf("[Myday-Planner] %d overdue, %d due soon", b.OverdueCount(), b.UpcomingCount())
}

// RenderDigest builds the HTML body of a user's daily digest.
func RenderDigest(user *model.User, digestDate string, b *UserBucket, link string) (string, error) {
	name := user.Name
	if name == "" {
		name = user.Email
	}
	view := digestView{Name: name, Date: digestDate, Link: link}
	if b != nil {
		view.Overdue = b.Overdue
		view.Upcoming = b.Upcoming
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}
