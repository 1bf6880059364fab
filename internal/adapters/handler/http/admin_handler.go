package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

const (
	// extraChoiceRows blank choice rows are appended to the question form.
	extraChoiceRows = 3
	maxChoiceRows   = 1000

	nonFieldErrors = "__all__"
)

type AdminHandler struct {
	service  ports.AdminService
	renderer *Renderer
	location *time.Location
}

// NewAdminHandler builds the admin site handlers. Publish dates typed into
// the form are read in loc.
func NewAdminHandler(service ports.AdminService, renderer *Renderer, loc *time.Location) *AdminHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{
		service:  service,
		renderer: renderer,
		location: loc,
	}
}

// adminPage is embedded by every admin page for the header.
type adminPage struct {
	User *domain.User
}

type filterLink struct {
	Label    string
	URL      string
	Selected bool
}

type changelistPage struct {
	adminPage
	Questions []*domain.Question
	Search    string
	Published string
	Filters   []filterLink
}

type choiceRow struct {
	Index  int
	ID     int64
	Text   string
	Votes  string
	Delete bool
}

type questionForm struct {
	adminPage
	ID      int64
	Text    string
	Date    string
	Time    string
	Choices []choiceRow
	Errors  map[string]string
}

type deletePage struct {
	adminPage
	Question *domain.Question
}

var publishedFilters = []struct {
	label string
	value string
}{
	{"Any date", ports.PublishedAny},
	{"Today", ports.PublishedToday},
	{"Past 7 days", ports.PublishedPast7},
	{"This month", ports.PublishedMonth},
	{"This year", ports.PublishedYear},
}

func (h *AdminHandler) Changelist(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := ports.ListQuestionsInput{
		Search:    query.Get("q"),
		Published: query.Get("published"),
	}

	questions, err := h.service.ListQuestions(r.Context(), input)
	if err != nil {
		h.renderer.serverError(w, r, err)
		return
	}

	page := changelistPage{
		adminPage: adminPage{User: CurrentUser(r.Context())},
		Questions: questions,
		Search:    input.Search,
		Published: input.Published,
	}
	for _, f := range publishedFilters {
		page.Filters = append(page.Filters, filterLink{
			Label:    f.label,
			URL:      changelistURL(input.Search, f.value),
			Selected: f.value == input.Published,
		})
	}

	h.renderer.render(w, r, http.StatusOK, "admin/changelist", page)
}

func (h *AdminHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	form := questionForm{adminPage: adminPage{User: CurrentUser(r.Context())}}
	h.renderer.render(w, r, http.StatusOK, "admin/form", withExtraRows(form))
}

func (h *AdminHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	input, form := h.parseQuestionForm(r)
	if form.Errors != nil {
		h.renderer.render(w, r, http.StatusOK, "admin/form", form)
		return
	}

	question, err := h.service.CreateQuestion(r.Context(), input)
	if err != nil {
		h.handleSaveError(w, r, form, err)
		return
	}

	redirectAfterSave(w, r, question.ID)
}

func (h *AdminHandler) ChangeForm(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleLookupError(w, r, err)
		return
	}

	form := h.formFromQuestion(question)
	form.User = CurrentUser(r.Context())
	h.renderer.render(w, r, http.StatusOK, "admin/form", form)
}

func (h *AdminHandler) Change(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.service.GetQuestion(r.Context(), id)
	if err != nil {
		h.handleLookupError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	input, form := h.parseQuestionForm(r)
	form.ID = existing.ID
	if form.Errors != nil {
		h.renderer.render(w, r, http.StatusOK, "admin/form", form)
		return
	}

	question, err := h.service.UpdateQuestion(r.Context(), id, input)
	if err != nil {
		if errors.Is(err, domain.ErrQuestionNotFound) {
			h.renderer.notFound(w, r)
			return
		}
		h.handleSaveError(w, r, form, err)
		return
	}

	redirectAfterSave(w, r, question.ID)
}

func (h *AdminHandler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleLookupError(w, r, err)
		return
	}

	h.renderer.render(w, r, http.StatusOK, "admin/delete", deletePage{
		adminPage: adminPage{User: CurrentUser(r.Context())},
		Question:  question,
	})
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleLookupError(w, r, err)
		return
	}

	http.Redirect(w, r, adminPath, http.StatusSeeOther)
}

func (h *AdminHandler) handleLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if isNotFound(err) {
		h.renderer.notFound(w, r)
		return
	}
	h.renderer.serverError(w, r, err)
}

func (h *AdminHandler) handleSaveError(w http.ResponseWriter, r *http.Request, form questionForm, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		form.Errors = verr.Fields
	case errors.Is(err, domain.ErrChoiceNotFound):
		form.Errors = map[string]string{nonFieldErrors: "A choice was changed by someone else. Please reload the page."}
	default:
		h.renderer.serverError(w, r, err)
		return
	}

	h.renderer.render(w, r, http.StatusOK, "admin/form", form)
}

// parseQuestionForm reads the submitted question and its inline choice rows.
// Values that cannot be parsed are reported in form.Errors, which stays nil
// when everything parsed.
func (h *AdminHandler) parseQuestionForm(r *http.Request) (ports.QuestionInput, questionForm) {
	errs := make(map[string]string)
	form := questionForm{
		adminPage: adminPage{User: CurrentUser(r.Context())},
		Text:      r.PostFormValue("question_text"),
		Date:      strings.TrimSpace(r.PostFormValue("publish_date_0")),
		Time:      strings.TrimSpace(r.PostFormValue("publish_date_1")),
	}
	input := ports.QuestionInput{Text: form.Text}

	if form.Date != "" || form.Time != "" {
		publishDate, msg := parseDateTime(form.Date, form.Time, h.location)
		if msg != "" {
			errs["publish_date"] = msg
		}
		input.PublishDate = publishDate
	}

	total, err := strconv.Atoi(r.PostFormValue("choices-TOTAL_FORMS"))
	if err != nil || total < 0 {
		total = 0
	}
	total = min(total, maxChoiceRows)

	for i := 0; i < total; i++ {
		prefix := fmt.Sprintf("choices-%d-", i)
		row := choiceRow{
			Index:  i,
			Text:   r.PostFormValue(prefix + "choice_text"),
			Votes:  strings.TrimSpace(r.PostFormValue(prefix + "votes")),
			Delete: r.PostFormValue(prefix+"DELETE") != "",
		}
		choice := ports.ChoiceInput{Text: row.Text, Delete: row.Delete}

		if raw := strings.TrimSpace(r.PostFormValue(prefix + "id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				errs[prefix+"id"] = "Select a valid choice."
			} else {
				row.ID = id
				choice.ID = id
			}
		}

		if row.Votes != "" {
			votes, err := strconv.ParseInt(row.Votes, 10, 64)
			if err != nil {
				errs[prefix+"votes"] = "Enter a whole number."
			} else {
				choice.Votes = votes
			}
		}

		form.Choices = append(form.Choices, row)
		input.Choices = append(input.Choices, choice)
	}

	if len(errs) > 0 {
		form.Errors = errs
	}
	return input, form
}

func (h *AdminHandler) formFromQuestion(q *domain.Question) questionForm {
	local := q.PublishDate.In(h.location)
	form := questionForm{
		ID:   q.ID,
		Text: q.Text,
		Date: local.Format(time.DateOnly),
		Time: local.Format(time.TimeOnly),
	}
	for i, c := range q.Choices {
		form.Choices = append(form.Choices, choiceRow{
			Index: i,
			ID:    c.ID,
			Text:  c.Text,
			Votes: strconv.FormatInt(c.Votes, 10),
		})
	}
	return withExtraRows(form)
}

func withExtraRows(form questionForm) questionForm {
	for i := 0; i < extraChoiceRows; i++ {
		form.Choices = append(form.Choices, choiceRow{Index: len(form.Choices), Votes: "0"})
	}
	return form
}

// parseDateTime combines the date and time inputs. The returned message is
// empty on success.
func parseDateTime(date, clock string, loc *time.Location) (time.Time, string) {
	if date == "" {
		return time.Time{}, "Enter a date."
	}
	if clock == "" {
		return time.Time{}, "Enter a time."
	}

	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, "Enter a valid date."
	}

	var tod time.Time
	for _, layout := range []string{time.TimeOnly, "15:04"} {
		if tod, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, "Enter a valid time."
	}

	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc), ""
}

func redirectAfterSave(w http.ResponseWriter, r *http.Request, id int64) {
	target := adminPath
	switch {
	case r.PostFormValue("_continue") != "":
		target = fmt.Sprintf("/admin/polls/question/%d/change/", id)
	case r.PostFormValue("_addanother") != "":
		target = "/admin/polls/question/add/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func changelistURL(search, published string) string {
	values := url.Values{}
	if search != "" {
		values.Set("q", search)
	}
	if published != "" {
		values.Set("published", published)
	}
	if len(values) == 0 {
		return adminPath
	}
	return adminPath + "?" + values.Encode()
}
