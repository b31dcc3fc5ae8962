package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/attachment"
	apperrors "github.com/stocklens/stocklens/internal/errors"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/panel"
	"github.com/stocklens/stocklens/internal/render"
)

const (
	// multipartOverhead allows for form fields and part headers on top of
	// the attachment itself.
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20

	previewSize = 512

	// Field names of the submission forms.
	fieldPrompt = "prompt"
	fieldImage  = "image"

	msgPromptRequired = "prompt is required"
	msgImageRequired  = "image file is required"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// PanelHandler serves the three panels of one controller set.
type PanelHandler struct {
	panels    *panel.Set
	maxUpload int64
}

// NewPanelHandler serves panels. maxUpload bounds attachment uploads.
func NewPanelHandler(panels *panel.Set, maxUpload int64) *PanelHandler {
	return &PanelHandler{panels: panels, maxUpload: maxUpload}
}

// Register mounts the panel routes on r.
func (h *PanelHandler) Register(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/panels/market", h.SubmitMarket)
	r.Post("/panels/image", h.SubmitImage)
	r.Post("/panels/image/attachment", h.SelectAttachment)
	r.Post("/panels/deepdive", h.SubmitDeepDive)
	r.Get("/api/panels/{panel}", h.State)
	r.Get("/preview/image", h.PreviewImage)
}

type tabView struct {
	Name  string
	Title string
}

var tabs = []tabView{
	{Name: panel.NameMarket, Title: "시장 분석"},
	{Name: panel.NameImage, Title: "이미지 분석"},
	{Name: panel.NameDeepDive, Title: "심층 분석"},
}

type panelView struct {
	Name    string
	Status  string
	Loading bool
	Error   string

	// HTML is sanitized markdown output; Text is shown pre-wrapped.
	HTML  template.HTML
	Text  string
	Links []render.Link

	Attachment *attachmentInfo
	CanSubmit  bool
}

type attachmentInfo struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}

type pageView struct {
	Tab      string
	Tabs     []tabView
	Refresh  bool
	Market   panelView
	Image    panelView
	DeepDive panelView
}

// Index renders the page. Any panel in Loading makes the page refresh itself.
func (h *PanelHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := pageView{
		Tab:      activeTab(r.URL.Query().Get("tab")),
		Tabs:     tabs,
		Market:   h.marketView(),
		Image:    h.imageView(),
		DeepDive: h.deepDiveView(),
	}
	view.Refresh = view.Market.Loading || view.Image.Loading || view.DeepDive.Loading

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.ExecuteTemplate(w, "index.html.tmpl", view); err != nil {
		logWarn("render page failed", zap.Error(err))
	}
}

func (h *PanelHandler) marketView() panelView {
	snap := h.panels.Market.Snapshot()
	view := baseView(panel.NameMarket, snap.Status, snap.Error)
	if snap.HasResult && snap.Result != nil {
		view.HTML = markdownOrText(snap.Result.Text)
		view.Links = render.Links(snap.Result.Sources)
	}
	return view
}

func (h *PanelHandler) imageView() panelView {
	snap := h.panels.Image.Snapshot()
	view := baseView(panel.NameImage, snap.Status, snap.Error)
	if snap.HasResult {
		view.HTML = markdownOrText(snap.Result)
	}
	if f := h.panels.Image.Attachment(); f != nil {
		view.Attachment = &attachmentInfo{Name: f.Name, MediaType: f.MediaType, Size: f.Size}
	}
	view.CanSubmit = view.Attachment != nil && !view.Loading
	return view
}

func (h *PanelHandler) deepDiveView() panelView {
	snap := h.panels.DeepDive.Snapshot()
	view := baseView(panel.NameDeepDive, snap.Status, snap.Error)
	if snap.HasResult {
		view.Text = snap.Result
	}
	return view
}

func baseView(name string, status panel.Status, errMsg string) panelView {
	return panelView{
		Name:      name,
		Status:    status.String(),
		Loading:   status == panel.StatusLoading,
		Error:     errMsg,
		CanSubmit: status != panel.StatusLoading,
	}
}

func markdownOrText(text string) template.HTML {
	out, err := render.Markdown(text)
	if err != nil {
		logWarn("render markdown failed", zap.Error(err))
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>") // #nosec G203 -- escaped
	}
	return out
}

// SubmitMarket starts a search-grounded query from the form field "prompt".
func (h *PanelHandler) SubmitMarket(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue(fieldPrompt)
	loading := h.panels.Market.Snapshot().Loading()
	_, accepted := h.panels.Market.Submit(detach(r), prompt)
	h.respondSubmission(w, r, panel.NameMarket, accepted, loading, msgPromptRequired)
}

// SubmitDeepDive starts a long-form reasoning query.
func (h *PanelHandler) SubmitDeepDive(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue(fieldPrompt)
	loading := h.panels.DeepDive.Snapshot().Loading()
	_, accepted := h.panels.DeepDive.Submit(detach(r), prompt)
	h.respondSubmission(w, r, panel.NameDeepDive, accepted, loading, msgPromptRequired)
}

// SubmitImage starts a multimodal query. A file in the "image" field
// replaces the selected attachment first.
func (h *PanelHandler) SubmitImage(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readAttachment(w, r)
	if !ok {
		return
	}
	if f != nil {
		if h.panels.Image.Snapshot().Loading() {
			respondWithError(w, r, apperrors.NewConflictError("image analysis already in progress"))
			return
		}
		h.panels.Image.SelectAttachment(f)
	}

	prompt := r.FormValue(fieldPrompt)
	rejection := msgPromptRequired
	if panel.ValidPrompt(prompt) && h.panels.Image.Attachment() == nil {
		rejection = msgImageRequired
	}
	loading := h.panels.Image.Snapshot().Loading()
	_, accepted := h.panels.Image.SubmitPrompt(detach(r), prompt)
	h.respondSubmission(w, r, panel.NameImage, accepted, loading, rejection)
}

// SelectAttachment replaces the image panel's attachment, which clears its
// result and error.
func (h *PanelHandler) SelectAttachment(w http.ResponseWriter, r *http.Request) {
	f, ok := h.readAttachment(w, r)
	if !ok {
		return
	}
	if f == nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("image file is required"))
		return
	}
	if h.panels.Image.Snapshot().Loading() {
		respondWithError(w, r, apperrors.NewConflictError("image analysis already in progress"))
		return
	}
	h.panels.Image.SelectAttachment(f)

	if wantsJSON(r) {
		h.writeState(w, http.StatusOK, panel.NameImage)
		return
	}
	redirectToTab(w, r, panel.NameImage)
}

// readAttachment parses a multipart upload. It returns (nil, true) when the
// request carries no file and (nil, false) after writing an error response.
func (h *PanelHandler) readAttachment(w http.ResponseWriter, r *http.Request) (*attachment.File, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, true
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			respondWithError(w, r, apperrors.NewPayloadTooLargeError("image exceeds upload limit"))
			return nil, false
		}
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, "malformed upload"))
		return nil, false
	}

	file, header, err := r.FormFile(fieldImage)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, "malformed upload"))
		return nil, false
	}
	defer file.Close() // nolint:errcheck // read-only

	var src io.Reader = file
	if h.maxUpload > 0 {
		src = io.LimitReader(file, h.maxUpload+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, "failed to read upload"))
		return nil, false
	}
	if h.maxUpload > 0 && int64(len(data)) > h.maxUpload {
		respondWithError(w, r, apperrors.NewPayloadTooLargeError("image exceeds upload limit"))
		return nil, false
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "application/octet-stream" {
		mediaType = ""
	}
	f := attachment.FromBytes(header.Filename, mediaType, data)
	if f.MediaType == "" {
		f.MediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(f.MediaType, "image/") {
		respondWithError(w, r, apperrors.NewUnsupportedMediaTypeError("attachment must be an image"))
		return nil, false
	}
	return f, true
}

// PreviewImage serves a JPEG thumbnail of the selected attachment.
func (h *PanelHandler) PreviewImage(w http.ResponseWriter, r *http.Request) {
	f := h.panels.Image.Attachment()
	if f == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("no image selected"))
		return
	}

	thumb, err := attachment.Preview(r.Context(), f, previewSize)
	if errors.Is(err, attachment.ErrImageTooLarge) {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodePayloadTooLarge, err, "image too large to preview"))
		return
	}
	if err != nil {
		// Formats without a Go decoder (HEIC) have no preview.
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeUnsupportedMediaType, err, "preview unavailable"))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(thumb)
}

// State reports one panel's snapshot as JSON.
func (h *PanelHandler) State(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "panel")
	if !knownPanel(name) {
		respondWithError(w, r, apperrors.NewNotFoundError("unknown panel"))
		return
	}
	h.writeState(w, http.StatusOK, name)
}

// PanelState is the JSON form of a panel snapshot.
type PanelState struct {
	Panel      string          `json:"panel"`
	Status     panel.Status    `json:"status"`
	Error      string          `json:"error,omitempty"`
	Result     any             `json:"result,omitempty"`
	Links      []render.Link   `json:"links,omitempty"`
	Attachment *attachmentInfo `json:"attachment,omitempty"`
}

func (h *PanelHandler) state(name string) PanelState {
	switch name {
	case panel.NameMarket:
		snap := h.panels.Market.Snapshot()
		st := PanelState{Panel: name, Status: snap.Status, Error: snap.Error}
		if snap.HasResult && snap.Result != nil {
			st.Result = snap.Result
			st.Links = render.Links(snap.Result.Sources)
		}
		return st
	case panel.NameImage:
		snap := h.panels.Image.Snapshot()
		st := PanelState{Panel: name, Status: snap.Status, Error: snap.Error}
		if snap.HasResult {
			st.Result = snap.Result
		}
		if f := h.panels.Image.Attachment(); f != nil {
			st.Attachment = &attachmentInfo{Name: f.Name, MediaType: f.MediaType, Size: f.Size}
		}
		return st
	default:
		snap := h.panels.DeepDive.Snapshot()
		st := PanelState{Panel: name, Status: snap.Status, Error: snap.Error}
		if snap.HasResult {
			st.Result = snap.Result
		}
		return st
	}
}

func (h *PanelHandler) writeState(w http.ResponseWriter, status int, name string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(h.state(name))
}

// respondSubmission answers a submit. Browsers are redirected back to the
// panel's tab either way; JSON clients get the snapshot or an error.
func (h *PanelHandler) respondSubmission(w http.ResponseWriter, r *http.Request, name string, accepted, wasLoading bool, rejection string) {
	if !wantsJSON(r) {
		redirectToTab(w, r, name)
		return
	}
	if accepted {
		h.writeState(w, http.StatusAccepted, name)
		return
	}
	if wasLoading {
		respondWithError(w, r, apperrors.NewConflictError("a request is already in progress"))
		return
	}
	respondWithError(w, r, apperrors.NewInvalidInputError(rejection))
}

// detach keeps the request's values but not its cancellation, so a
// submission outlives the redirect. The gateway applies its own timeout.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func redirectToTab(w http.ResponseWriter, r *http.Request, name string) {
	http.Redirect(w, r, "/?tab="+url.QueryEscape(name), http.StatusSeeOther)
}

func activeTab(tab string) string {
	if knownPanel(tab) {
		return tab
	}
	return panel.NameMarket
}

func knownPanel(name string) bool {
	switch name {
	case panel.NameMarket, panel.NameImage, panel.NameDeepDive:
		return true
	}
	return false
}

func logWarn(msg string, fields ...zap.Field) {
	if logger := observability.Active(); logger != nil {
		logger.Warn(msg, fields...)
	}
}

// Compile-time check that the service satisfies the panel gateway.
var _ panel.Gateway = (*ailink.Service)(nil)
