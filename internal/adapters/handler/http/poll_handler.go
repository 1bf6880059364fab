package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type PollHandler struct {
	service  ports.PollService
	renderer *Renderer
}

func NewPollHandler(service ports.PollService, renderer *Renderer) *PollHandler {
	return &PollHandler{
		service:  service,
		renderer: renderer,
	}
}

type indexPage struct {
	Questions []*domain.Question
}

type detailPage struct {
	Question *domain.Question
	// NoChoice shows the "no choice selected" message above the form.
	NoChoice bool
}

type resultsPage struct {
	Question *domain.Question
	Results  []domain.ChoiceResult
}

func (h *PollHandler) Index(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.Index(r.Context())
	if err != nil {
		h.renderer.serverError(w, r, err)
		return
	}

	h.renderer.render(w, r, http.StatusOK, "index", indexPage{Questions: questions})
}

func (h *PollHandler) Detail(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleLookupError(w, r, err)
		return
	}

	h.renderer.render(w, r, http.StatusOK, "detail", detailPage{Question: question})
}

func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	question, results, err := h.service.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleLookupError(w, r, err)
		return
	}

	h.renderer.render(w, r, http.StatusOK, "results", resultsPage{Question: question, Results: results})
}

func (h *PollHandler) handleLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if isNotFound(err) {
		h.renderer.notFound(w, r)
		return
	}
	h.renderer.serverError(w, r, err)
}

// isNotFound reports errors that should surface as a 404 page. A malformed
// id is treated like a missing question.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrQuestionNotFound) || errors.Is(err, domain.ErrInvalidQuestionID)
}
