// bouchon/pkg/api/server.go

package api

import (
	"net/http"
	"strconv"

	"bouchon/pkg/capture"
	"bouchon/pkg/flow"
	"bouchon/pkg/logging"
	"bouchon/pkg/scenario"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP boundary: scenario CRUD, rule CRUD and reordering, mode
// toggles, capture export/import, and the websocket update channel. It holds
// no state of its own; everything routes into the controller, view, and
// capture packages.
type Server struct {
	view        *flow.View
	controller  *scenario.Controller
	codec       capture.Codec
	ingestor    *capture.Ingestor
	broadcaster *Broadcaster
	engine      *gin.Engine
}

func NewServer(view *flow.View, ctrl *scenario.Controller, codec capture.Codec, ing *capture.Ingestor, bc *Broadcaster) *Server {
	s := &Server{
		view:        view,
		controller:  ctrl,
		codec:       codec,
		ingestor:    ing,
		broadcaster: bc,
		engine:      gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/flows", s.listFlows)
	r.GET("/flows/dump", s.dumpFlows)
	r.POST("/flows/dump", s.loadFlows)
	r.POST("/flows/resume", s.resumeAll)
	r.POST("/flows/kill", s.killAll)
	r.DELETE("/flows/:flow_id", s.deleteFlow)
	r.POST("/flows/:flow_id/resume", s.resumeFlow)
	r.POST("/flows/:flow_id/kill", s.killFlow)
	r.POST("/flows/:flow_id/duplicate", s.duplicateFlow)
	r.POST("/flows/:flow_id/revert", s.revertFlow)
	r.PUT("/flows/:flow_id/rule/update", s.updateRule)
	r.POST("/flows/:flow_id/rule/:label/:index/up", s.ruleUp)
	r.POST("/flows/:flow_id/rule/:label/:index/down", s.ruleDown)
	r.POST("/flows/:flow_id/rule/:label/:index/delete", s.ruleDelete)
	r.POST("/scenario/:name", s.activateScenario)
	r.POST("/scenario/:name/remove", s.removeScenario)
	r.POST("/scenario/:name/copy", s.copyScenario)
	r.POST("/bouchon", s.switchMock)
	r.POST("/learn", s.switchLearning)
	r.POST("/clear", s.clearAll)
	r.GET("/updates", gin.WrapF(s.broadcaster.HandleWebSocket))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	logging.Logger.Info().Str("addr", addr).Msg("API server starting")
	return s.engine.Run(addr)
}

// writeError maps the typed error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch logging.TypeOf(err) {
	case logging.ErrorTypeNotFound:
		status = http.StatusNotFound
	case logging.ErrorTypeDuplicateName:
		status = http.StatusConflict
	case logging.ErrorTypeIndexRange, logging.ErrorTypeCaptureFormat, logging.ErrorTypeCodec:
		status = http.StatusBadRequest
	}
	logging.LogError(logging.Logger, err)
	c.JSON(status, gin.H{"error": string(logging.TypeOf(err)), "message": err.Error()})
}

// listFlows returns every live flow in its transport projection, annotated
// with the scenario that captured it and that flow's rule map. Listing turns
// learning and mock off afterwards.
func (s *Server) listFlows(c *gin.Context) {
	st := s.controller.Store()
	type entry struct {
		Flow  map[string]interface{}       `json:"flow"`
		Rules map[string][]scenario.Fields `json:"rules"`
	}
	entries := make([]entry, 0, s.view.Len())
	for _, f := range s.view.All() {
		e := entry{Flow: flow.Project(f), Rules: emptyRules()}
		// Last owning scenario wins when a flow belongs to several.
		for _, name := range st.Names() {
			sc, err := st.Get(name)
			if err != nil || !sc.Contains(f.ID) {
				continue
			}
			e.Flow["scenario"] = name
			e.Rules = emptyRules()
			if rs, err := sc.RuleSetFor(f.ID); err == nil {
				for label, rules := range rs.ToMap() {
					e.Rules[label] = rules
				}
			}
		}
		entries = append(entries, e)
	}

	current := st.Current()
	s.controller.OnFlowsListed()
	c.JSON(http.StatusOK, gin.H{"flows": entries, "current": current})
}

// emptyRules is the shape observers expect for flows with no rules yet.
func emptyRules() map[string][]scenario.Fields {
	return map[string][]scenario.Fields{
		"Headers": {},
		"Content": {},
		"URI":     {},
	}
}

func (s *Server) dumpFlows(c *gin.Context) {
	st := s.controller.Store()
	name := st.Current()
	if name == "" {
		writeError(c, logging.NewError(logging.ErrorTypeNotFound, "no current scenario", nil, nil))
		return
	}
	sc, err := st.Get(name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+name+".fl")
	c.Header("Content-Type", "application/octet-stream")
	if err := capture.Dump(c.Writer, sc, s.codec); err != nil {
		logging.LogError(logging.Logger, err)
	}
}

func (s *Server) loadFlows(c *gin.Context) {
	st := s.controller.Store()
	name := st.Current()
	if name == "" {
		writeError(c, logging.NewError(logging.ErrorTypeNotFound, "no current scenario", nil, nil))
		return
	}
	sc, err := st.Get(name)
	if err != nil {
		writeError(c, err)
		return
	}
	// Importing implies learning: the streamed flows are captures.
	if !st.Learning() {
		s.controller.SwitchLearning()
	}
	if err := capture.Load(c.Request.Body, sc, s.view, s.codec, s.ingestor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) resumeAll(c *gin.Context) {
	for _, f := range s.view.All() {
		f.Resume()
		s.view.Update(f)
	}
	c.Status(http.StatusOK)
}

func (s *Server) killAll(c *gin.Context) {
	for _, f := range s.view.All() {
		if f.Killable() {
			f.Kill()
			s.view.Update(f)
		}
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteFlow(c *gin.Context) {
	if err := s.controller.DeleteFlow(c.Param("flow_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) resumeFlow(c *gin.Context) {
	f, err := s.view.Get(c.Param("flow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	f.Resume()
	s.view.Update(f)
	c.Status(http.StatusOK)
}

func (s *Server) killFlow(c *gin.Context) {
	f, err := s.view.Get(c.Param("flow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if f.Killable() {
		f.Kill()
		s.view.Update(f)
	}
	c.Status(http.StatusOK)
}

func (s *Server) duplicateFlow(c *gin.Context) {
	f, err := s.view.Get(c.Param("flow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	dup := f.Copy()
	s.view.Add(dup)
	if sc := s.controller.Store().CurrentScenario(); sc != nil {
		sc.AddFlow(dup)
	}
	c.JSON(http.StatusOK, gin.H{"id": dup.ID})
}

func (s *Server) revertFlow(c *gin.Context) {
	f, err := s.view.Get(c.Param("flow_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if f.Modified() {
		f.Revert()
		s.view.Update(f)
	}
	c.Status(http.StatusOK)
}

// updateRule takes a JSON body holding Label, Index, and the rule's opaque
// fields. Index -1 appends at the end of the label's list.
func (s *Server) updateRule(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON", "message": err.Error()})
		return
	}
	label, ok := body["Label"].(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON", "message": "missing Label"})
		return
	}
	rawIndex, ok := body["Index"].(float64)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON", "message": "missing Index"})
		return
	}
	delete(body, "Label")
	delete(body, "Index")

	if err := s.controller.UpdateRule(c.Param("flow_id"), label, int(rawIndex), scenario.Fields(body)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) ruleUp(c *gin.Context) {
	s.moveRule(c, -1)
}

func (s *Server) ruleDown(c *gin.Context) {
	s.moveRule(c, +1)
}

func (s *Server) moveRule(c *gin.Context, delta int) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed index", "message": err.Error()})
		return
	}
	if err := s.controller.MoveRule(c.Param("flow_id"), c.Param("label"), index, index+delta); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) ruleDelete(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed index", "message": err.Error()})
		return
	}
	if err := s.controller.DeleteRule(c.Param("flow_id"), c.Param("label"), index); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) activateScenario(c *gin.Context) {
	if err := s.controller.Activate(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) removeScenario(c *gin.Context) {
	if err := s.controller.Remove(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current": s.controller.Store().Current()})
}

// copyScenario renames the current scenario to the given name.
func (s *Server) copyScenario(c *gin.Context) {
	src := s.controller.Store().Current()
	if src == "" {
		writeError(c, logging.NewError(logging.ErrorTypeNotFound, "no current scenario", nil, nil))
		return
	}
	if err := s.controller.Copy(src, c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) switchMock(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mock": s.controller.SwitchMock()})
}

func (s *Server) switchLearning(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"learning": s.controller.SwitchLearning()})
}

func (s *Server) clearAll(c *gin.Context) {
	s.view.Clear()
	c.Status(http.StatusOK)
}
