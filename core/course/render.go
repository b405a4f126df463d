package course

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	//go:embed templates/*.gohtml
	templatesFS embed.FS

	itemTemplates = template.Must(
		template.New("items").
			Option("missingkey=error").
			Funcs(template.FuncMap{"linebreaks": linebreaks}).
			ParseFS(templatesFS, "templates/*.gohtml"))

	newlinesRegex  = regexp.MustCompile(`\n{2,}`)
	youtubeIDRegex = regexp.MustCompile(`^[\w-]{6,}$`)
	vimeoIDRegex   = regexp.MustCompile(`^\d+$`)
)

func renderItem(kind Kind, data interface{}) (template.HTML, error) {
	var buff bytes.Buffer
	if err := itemTemplates.ExecuteTemplate(&buff, string(kind)+".gohtml", data); err != nil {
		return "", errors.Wrapf(err, "rendering %s item", kind)
	}
	return template.HTML(strings.TrimSpace(buff.String())), nil
}

// linebreaks converts plain text into HTML paragraphs: blank lines separate paragraphs
// and single newlines become <br>.
func linebreaks(text string) template.HTML {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if text == "" {
		return ""
	}
	paras := newlinesRegex.Split(text, -1)
	for i, p := range paras {
		paras[i] = "<p>" + strings.ReplaceAll(html.EscapeString(p), "\n", "<br>") + "</p>"
	}
	return template.HTML(strings.Join(paras, "\n\n"))
}

// videoEmbedURL returns the player URL of a YouTube or Vimeo video, or "" for other providers.
func videoEmbedURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	path := strings.Trim(u.Path, "/")

	switch host {
	case "youtube.com":
		var id string
		if path == "watch" {
			id = u.Query().Get("v")
		} else if strings.HasPrefix(path, "embed/") {
			id = strings.TrimPrefix(path, "embed/")
		}
		if youtubeIDRegex.MatchString(id) {
			return "https://www.youtube.com/embed/" + id
		}
	case "youtu.be":
		if youtubeIDRegex.MatchString(path) {
			return "https://www.youtube.com/embed/" + path
		}
	case "vimeo.com":
		if vimeoIDRegex.MatchString(path) {
			return "https://player.vimeo.com/video/" + path
		}
	case "player.vimeo.com":
		if id := strings.TrimPrefix(path, "video/"); vimeoIDRegex.MatchString(id) {
			return "https://player.vimeo.com/video/" + id
		}
	}
	return ""
}
