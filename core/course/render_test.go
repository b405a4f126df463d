package course_test

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartventer/elearning-site/core/course"
)

func TestRender(t *testing.T) {
	base := course.ItemBase{ID: 1, Title: "Item"}

	tests := []struct {
		name string
		item course.Item
		want template.HTML
	}{
		{
			name: "text: paragraphs & line breaks",
			item: course.TextItem{ItemBase: base, Content: "line one\nline two\n\n\nnext <b>para</b>"},
			want: "<p>line one<br>line two</p>\n\n<p>next &lt;b&gt;para&lt;/b&gt;</p>",
		},
		{
			name: "text: windows newlines",
			item: course.TextItem{ItemBase: base, Content: "a\r\nb"},
			want: "<p>a<br>b</p>",
		},
		{
			name: "text: blank",
			item: course.TextItem{ItemBase: base, Content: "  \n "},
			want: "",
		},
		{
			name: "video: youtube watch",
			item: course.VideoItem{ItemBase: base, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
			want: `<iframe width="480" height="360" src="https://www.youtube.com/embed/dQw4w9WgXcQ" frameborder="0" allowfullscreen></iframe>`,
		},
		{
			name: "video: youtu.be",
			item: course.VideoItem{ItemBase: base, URL: "https://youtu.be/dQw4w9WgXcQ"},
			want: `<iframe width="480" height="360" src="https://www.youtube.com/embed/dQw4w9WgXcQ" frameborder="0" allowfullscreen></iframe>`,
		},
		{
			name: "video: vimeo",
			item: course.VideoItem{ItemBase: base, URL: "https://vimeo.com/76979871"},
			want: `<iframe width="480" height="360" src="https://player.vimeo.com/video/76979871" frameborder="0" allowfullscreen></iframe>`,
		},
		{
			name: "video: other provider",
			item: course.VideoItem{ItemBase: base, URL: "https://example.com/talk.mp4"},
			want: `<p><a href="https://example.com/talk.mp4">Item</a></p>`,
		},
		{
			name: "image",
			item: course.ImageItem{ItemBase: base, Image: course.Upload{Key: "k", URL: "/media/2026/10/pic.png", ContentType: "image/png"}},
			want: `<p><img src="/media/2026/10/pic.png" alt="Item"></p>`,
		},
		{
			name: "file",
			item: course.FileItem{ItemBase: base, File: course.Upload{Key: "k", URL: "/media/2026/10/slides.pdf"}},
			want: `<p><a href="/media/2026/10/slides.pdf" class="button light" download>Download file</a></p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := course.Render(course.Content{ID: 3, Kind: tt.item.Kind(), ItemID: tt.item.Base().ID, Item: tt.item})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.HTML)
			assert.Equal(t, int64(3), got.ID)
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"text", "TEXT", " image ", "Video", "file"} {
		_, err := course.ParseKind(name)
		assert.NoError(t, err, name)
	}

	_, err := course.ParseKind("audio")
	assert.EqualError(t, err, `unknown content kind "audio"`)
	_, err = course.ParseKind("")
	assert.Error(t, err)
}
