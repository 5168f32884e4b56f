package service

import (
	"bytes"
	"html/template"
	"net/url"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
)

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "layout"}}<div style="background:#f6f7fb;padding:30px 0;font-family:Arial,sans-serif;line-height:1.6">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:16px;border:1px solid #e5e7eb;padding:24px">
<h1 style="margin:0 0 16px;font-size:20px;color:#0f172a">DanaLiph Publishing</h1>
{{template "body" .}}
<p style="margin-top:24px;color:#6b7280;font-size:12px">&copy; {{.Year}} DanaLiph Publishing.</p>
{{if .UnsubscribeURL}}<p style="font-size:12px;color:#666">You are receiving this email because you subscribed to our updates.<br><a href="{{.UnsubscribeURL}}">Unsubscribe</a></p>{{end}}
</div></div>{{end}}`))

var (
	bookPublishedTmpl = mustEmail(`
<h2>New Book Published!</h2>
<h3>{{.Book.Title}}</h3>
{{if .Book.AuthorName}}<p><strong>Author:</strong> {{.Book.AuthorName}}</p>{{end}}
{{if .Book.Description}}<p>{{.Book.Description}}</p>{{end}}
<p><a href="{{.Link}}" target="_blank">Read / View Book</a></p>`)

	passwordResetTmpl = mustEmail(`
<h2>Reset your password</h2>
<p>Hello <b>{{.Name}}</b>,<br>We received a request to reset your DanaLiph account password.</p>
<p>This link will expire in <b>15 minutes</b>.</p>
<p><a href="{{.Link}}" style="background:#0f172a;color:#fff;padding:12px 22px;border-radius:12px;text-decoration:none">Reset Password</a></p>
<p style="color:#6b7280;font-size:13px">If the button doesn't work, copy this link into your browser:<br>{{.Link}}</p>
<p style="color:#6b7280;font-size:13px">If you did not request a password reset, you can ignore this email.</p>`)

	contactReceivedTmpl = mustEmail(`
<h3>New Contact Message</h3>
<p><b>Name:</b> {{.Contact.Name}}</p>
<p><b>Email:</b> {{.Contact.Email}}</p>
<p><b>Phone:</b> {{.Contact.Phone}}</p>
<p><b>Message:</b><br>{{.Contact.Message}}</p>`)

	contactReplyTmpl = mustEmail(`
<p>Hi {{.Name}},</p>
<p>{{.Content}}</p>
<p>Regards,<br>Dan Aliph Team</p>`)

	newsletterTmpl = mustEmail(`
<h2>{{.Title}}</h2>
<p>{{.Content}}</p>`)
)

type emailData struct {
	Year           int
	UnsubscribeURL string
	Link           string
	Name           string
	Title          string
	Content        string
	Book           *models.Book
	Contact        *models.Contact
}

func mustEmail(body string) *template.Template {
	t := template.Must(emailTemplates.Clone())
	return template.Must(t.New("body").Parse(body))
}

func render(t *template.Template, d emailData) string {
	d.Year = time.Now().Year()
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		// The templates are static; a failure here is a programming error.
		panic(err)
	}
	return buf.String()
}

func unsubscribeURL(siteURL, token string) string {
	return siteURL + "/api/unsubscribe?token=" + url.QueryEscape(token)
}

func bookPublishedEmail(siteURL string, b *models.Book, sub models.Subscriber) Message {
	return Message{
		To:      sub.Email,
		Subject: "New Book Published: " + b.Title,
		HTML: render(bookPublishedTmpl, emailData{
			Book:           b,
			Link:           siteURL + "/books/" + url.PathEscape(b.Slug),
			UnsubscribeURL: unsubscribeURL(siteURL, sub.UnsubscribeToken),
		}),
	}
}

func passwordResetEmail(siteURL string, u *models.User, token string) Message {
	name := u.Name
	if name == "" {
		name = "User"
	}
	return Message{
		To:      u.Email,
		Subject: "Reset your DanaLiph Password",
		HTML: render(passwordResetTmpl, emailData{
			Name: name,
			Link: siteURL + "/reset-password?token=" + url.QueryEscape(token),
		}),
	}
}

func contactReceivedEmail(to string, c *models.Contact) Message {
	return Message{
		To:      to,
		Subject: "New Contact Message",
		HTML:    render(contactReceivedTmpl, emailData{Contact: c}),
	}
}

func contactReplyEmail(c *models.Contact, reply string) Message {
	return Message{
		To:      c.Email,
		Subject: "Reply from Dan Aliph",
		HTML:    render(contactReplyTmpl, emailData{Name: c.Name, Content: reply}),
	}
}

func newsletterEmail(siteURL, title, content string, sub models.Subscriber) Message {
	return Message{
		To:      sub.Email,
		Subject: title,
		HTML: render(newsletterTmpl, emailData{
			Title:          title,
			Content:        content,
			UnsubscribeURL: unsubscribeURL(siteURL, sub.UnsubscribeToken),
		}),
	}
}
