package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowmaker/pkg/buildinfo"
	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/flow"
	flowio "github.com/matzehuels/flowmaker/pkg/io"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

// maxBody bounds request bodies.
const maxBody = 4 << 20

// =============================================================================
// Views
// =============================================================================

// PortView is the JSON form of a port.
type PortView struct {
	ID        string   `json:"id"`
	Direction string   `json:"direction"`
	Optional  bool     `json:"optional,omitempty"`
	Types     []string `json:"types"`
	Links     []string `json:"links"`
}

// NodeView is the JSON form of a node, including derived state.
type NodeView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Runnable bool       `json:"runnable"`
	Status   string     `json:"status,omitempty"`
	Progress float64    `json:"progress"`
	Ports    []PortView `json:"ports"`
}

// LinkView is the JSON form of a link.
type LinkView struct {
	Key      string `json:"key"`
	From     string `json:"from"`
	FromPort string `json:"from_port"`
	To       string `json:"to"`
	ToPort   string `json:"to_port"`
	Label    string `json:"label,omitempty"`
}

// EventView is one entry of the event stream.
type EventView struct {
	Type string    `json:"type"`
	Node *NodeView `json:"node,omitempty"`
	Link *LinkView `json:"link,omitempty"`
}

func newNodeView(n *flow.Node) NodeView {
	x, y := n.Position()
	v := NodeView{
		ID:       n.ID(),
		Name:     n.Name(),
		X:        x,
		Y:        y,
		Runnable: n.Runnable(),
		Status:   n.Status(),
		Progress: n.Progress(),
		Ports:    []PortView{},
	}
	for _, p := range n.Ports() {
		pv := PortView{
			ID:        p.ID(),
			Direction: p.Direction().String(),
			Optional:  p.Optional(),
			Types:     p.DataTypes(),
			Links:     []string{},
		}
		for _, k := range p.Links() {
			pv.Links = append(pv.Links, string(k))
		}
		v.Ports = append(v.Ports, pv)
	}
	return v
}

func newLinkView(l *flow.Link) LinkView {
	return LinkView{
		Key:      string(l.Key()),
		From:     l.SourceNodeID(),
		FromPort: l.SourcePortID(),
		To:       l.SinkNodeID(),
		ToPort:   l.SinkPortID(),
		Label:    l.Label(),
	}
}

func newEventView(e flow.Event) EventView {
	v := EventView{Type: e.Type.String()}
	if e.Node != nil {
		nv := newNodeView(e.Node)
		v.Node = &nv
	}
	if e.Link != nil {
		lv := newLinkView(e.Link)
		v.Link = &lv
	}
	return v
}

func nodeViews(nodes []*flow.Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, newNodeView(n))
	}
	return out
}

// =============================================================================
// Flow
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Short()})
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := flowio.FromFlow(s.flow)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, doc)
}

type putFlowResponse struct {
	Nodes    int         `json:"nodes"`
	Links    int         `json:"links"`
	Rejected []rejection `json:"rejected"`
}

type rejection struct {
	Link   flowio.Link `json:"link"`
	Reason string      `json:"reason"`
}

func (s *Server) handlePutFlow(w http.ResponseWriter, r *http.Request) {
	doc, err := flowio.ReadJSON(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, err)
		return
	}
	f, rejected, err := flowio.Build(doc, flow.WithIDSource(flow.UUIDSource()), flow.WithLogger(s.logger))
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.setFlow(f)
	resp := putFlowResponse{Nodes: f.NodeCount(), Links: f.LinkCount(), Rejected: []rejection{}}
	s.mu.Unlock()

	for _, rj := range rejected {
		s.logger.Warn("link rejected", "link", rj.Link.Key(), "reason", rj.Err)
		resp.Rejected = append(resp.Rejected, rejection{Link: rj.Link, Reason: rj.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := pipeline.Options{Format: format, Detailed: r.URL.Query().Get("detailed") == "true"}

		s.mu.Lock()
		data, _, err := s.runner.RenderWithCacheInfo(r.Context(), s.flow, opts)
		s.mu.Unlock()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	views := nodeViews(s.flow.Roots())
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, views)
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req flowio.Node
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := req.NewNode()
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	added, err := s.flow.AddNode(n, req.X, req.Y)
	var view NodeView
	if err == nil {
		view = newNodeView(added)
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/nodes/"+url.PathEscape(view.ID))
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	n, ok := s.flow.Node(id)
	var view NodeView
	if ok {
		view = newNodeView(n)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, errs.New(errs.ErrCodeNodeNotFound, "node %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type moveRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "x and y are required"))
		return
	}

	s.mu.Lock()
	err := s.flow.MoveNode(id, *req.X, *req.Y)
	var view NodeView
	if err == nil {
		n, _ := s.flow.Node(id)
		view = newNodeView(n)
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	err := s.flow.RemoveNode(id)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNeighbours(upstream bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		_, ok := s.flow.Node(id)
		var views []NodeView
		if ok {
			if upstream {
				views = nodeViews(s.flow.UpstreamNodes(id))
			} else {
				views = nodeViews(s.flow.DownstreamNodes(id))
			}
		}
		s.mu.Unlock()
		if !ok {
			writeError(w, errs.New(errs.ErrCodeNodeNotFound, "node %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// =============================================================================
// Links
// =============================================================================

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req flowio.Link
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	var opts []flow.LinkOption
	if req.Label != "" {
		opts = append(opts, flow.WithLabel(req.Label))
	}
	if len(req.Meta) > 0 {
		opts = append(opts, flow.WithLinkMeta(req.Meta))
	}

	s.mu.Lock()
	reason := flow.CheckConnection(s.flow, req.From, req.FromPort, req.To, req.ToPort)
	var view LinkView
	if reason == nil {
		view = newLinkView(s.flow.Connect(req.From, req.FromPort, req.To, req.ToPort, opts...))
	}
	s.mu.Unlock()

	if reason != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "connection rejected",
			Code:    "REJECTED",
			Message: reason.Error(),
		})
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "link key"))
		return
	}

	s.mu.Lock()
	err = s.flow.RemoveLink(flow.LinkKey(key))
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Layout and control
// =============================================================================

type layoutRequest struct {
	Mode       string  `json:"mode"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
	Refresh    bool    `json:"refresh"`
}

type layoutResponse struct {
	Cached bool       `json:"cached"`
	Nodes  []NodeView `json:"nodes"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	opts := pipeline.Options{
		Mode:       req.Mode,
		CellWidth:  req.CellWidth,
		CellHeight: req.CellHeight,
		Refresh:    req.Refresh,
	}
	if opts.CellWidth == 0 {
		opts.CellWidth = s.cellWidth
	}
	if opts.CellHeight == 0 {
		opts.CellHeight = s.cellHeight
	}
	if opts.CellWidth < 0 || opts.CellHeight < 0 {
		writeError(w, errs.New(errs.ErrCodeInvalidGrid, "cell size must be positive, got %gx%g", opts.CellWidth, opts.CellHeight))
		return
	}
	if opts.Mode != "" {
		if err := pipeline.ValidateMode(opts.Mode); err != nil {
			writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "layout"))
			return
		}
	}

	s.mu.Lock()
	cached, err := s.runner.LayoutWithCacheInfo(r.Context(), s.flow, opts)
	resp := layoutResponse{Cached: cached, Nodes: nodeViews(s.flow.Nodes())}
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "read body"))
		return
	}

	s.mu.Lock()
	err = s.receiver.Handle(raw)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Events
// =============================================================================

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errs.New(errs.ErrCodeUnsupported, "streaming not supported"))
		return
	}

	ch := s.addClient()
	defer s.removeClient(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

// =============================================================================
// Helpers
// =============================================================================

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode request")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.GetCode(err)
	writeJSON(w, statusFor(err), errorBody{
		Error:   errs.UserMessage(err),
		Code:    string(code),
		Message: err.Error(),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindInvalid:
		return http.StatusBadRequest
	case errs.KindLayout:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
