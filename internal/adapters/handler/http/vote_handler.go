package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type VoteHandler struct {
	service  ports.VoteService
	renderer *Renderer
}

func NewVoteHandler(service ports.VoteService, renderer *Renderer) *VoteHandler {
	return &VoteHandler{
		service:  service,
		renderer: renderer,
	}
}

func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	input := ports.VoteInput{
		QuestionID: chi.URLParam(r, "id"),
		ChoiceID:   r.PostFormValue("choice"),
	}

	question, err := h.service.Vote(r.Context(), input)
	if err != nil {
		if isNotFound(err) {
			h.renderer.notFound(w, r)
			return
		}
		if errors.Is(err, domain.ErrNoChoiceSelected) || errors.Is(err, domain.ErrChoiceNotFound) {
			h.renderer.render(w, r, http.StatusOK, "detail", detailPage{Question: question, NoChoice: true})
			return
		}

		h.renderer.serverError(w, r, err)
		return
	}

	// redirect so a reload does not post the vote twice
	http.Redirect(w, r, fmt.Sprintf("/polls/%d/results/", question.ID), http.StatusSeeOther)
}
