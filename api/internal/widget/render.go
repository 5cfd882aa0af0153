package widget

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"chess-moves/api/internal/moves/types"
)

// NoMove is shown for a side the model returned null for.
const NoMove = "No move found or suggested."

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer maps an UploadState to HTML. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse widget templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(w io.Writer, st UploadState) error {
	return r.tmpl.ExecuteTemplate(w, "widget", newViewModel(st))
}

func (r *Renderer) HTML(st UploadState) (template.HTML, error) {
	var b bytes.Buffer
	if err := r.Render(&b, st); err != nil {
		return "", err
	}
	return template.HTML(b.String()), nil
}

type sideView struct {
	Label    string
	Found    bool
	From     string
	To       string
	Comments string
	Missing  string
}

type viewModel struct {
	Phase   string
	Pending bool
	Preview template.URL
	Error   string
	Result  bool
	White   sideView
	Black   sideView
}

func newViewModel(st UploadState) viewModel {
	vm := viewModel{
		Phase:   st.Phase.String(),
		Pending: st.Phase == PhasePending,
		Preview: safePreview(st.Preview),
		Error:   st.Error,
	}
	if st.Phase == PhaseSuccess && st.Result != nil {
		vm.Result = true
		vm.White = side("White", st.Result.WhiteBestMove)
		vm.Black = side("Black", st.Result.BlackBestMove)
	}
	return vm
}

func side(label string, m *types.Move) sideView {
	if m == nil {
		return sideView{Label: label, Missing: NoMove}
	}
	return sideView{Label: label, Found: true, From: m.From, To: m.To, Comments: strings.TrimSpace(m.Comments)}
}

// safePreview lets through object URLs and inline image data only.
func safePreview(ref string) template.URL {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "blob:"):
		return template.URL(ref)
	case strings.HasPrefix(strings.ToLower(ref), "data:image/"):
		return template.URL(ref)
	default:
		return ""
	}
}

// RenderText is the plain-text form of a result, used by chat replies.
func RenderText(res types.MoveResult) string {
	var b strings.Builder
	b.WriteString("Best Moves:\n")
	writeSide(&b, "White", res.WhiteBestMove)
	writeSide(&b, "Black", res.BlackBestMove)
	return strings.TrimRight(b.String(), "\n")
}

func writeSide(b *strings.Builder, label string, m *types.Move) {
	if m == nil {
		fmt.Fprintf(b, "%s: %s\n", label, NoMove)
		return
	}
	fmt.Fprintf(b, "%s: %s to %s\n", label, m.From, m.To)
	if c := strings.TrimSpace(m.Comments); c != "" {
		b.WriteString(c + "\n")
	}
}
