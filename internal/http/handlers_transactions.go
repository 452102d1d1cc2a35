package http

import (
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

// currentUser is only called behind authed.
func currentUser(r *http.Request) core.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func (s *Server) handleList(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		search := sanitizeInput(r.URL.Query().Get("search"))
		page, err := s.deps.Transactions.List(r.Context(), u.ID, kind, ParsePage(r), search)
		if err != nil {
			s.writeError(w, r, "List "+kind.Plural(), err)
			return
		}
		NewJSONResponse().JSON(page).Write(w)
	})
}

func (s *Server) handleGet(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParseID(r, "id")
		if !ok {
			BadRequestError("invalid id").Write(w)
			return
		}
		tx, err := s.deps.Transactions.Get(r.Context(), currentUser(r).ID, kind, id)
		if err != nil {
			s.writeError(w, r, "Get "+string(kind), err)
			return
		}
		NewJSONResponse().JSON(map[string]any{string(kind): tx}).Write(w)
	})
}

func (s *Server) decodeTransaction(w http.ResponseWriter, r *http.Request) (services.TransactionInput, bool) {
	var in services.TransactionInput
	if resp := DecodeJSON(w, r, &in); resp != nil {
		resp.Write(w)
		return in, false
	}
	in.Description = sanitizeInput(in.Description)
	in.Category = sanitizeInput(in.Category)
	in.Account = sanitizeInput(in.Account)
	return in, true
}

func (s *Server) handleCreate(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in, ok := s.decodeTransaction(w, r)
		if !ok {
			return
		}
		tx, bal, err := s.deps.Transactions.Create(r.Context(), currentUser(r).ID, kind, in)
		if err != nil {
			s.writeError(w, r, "Create "+string(kind), err)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).
			JSON(map[string]any{string(kind): tx, "balance": bal}).
			Write(w)
	})
}

func (s *Server) handleUpdate(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParseID(r, "id")
		if !ok {
			BadRequestError("invalid id").Write(w)
			return
		}
		in, ok := s.decodeTransaction(w, r)
		if !ok {
			return
		}
		tx, bal, err := s.deps.Transactions.Update(r.Context(), currentUser(r).ID, kind, id, in)
		if err != nil {
			s.writeError(w, r, "Update "+string(kind), err)
			return
		}
		NewJSONResponse().JSON(map[string]any{string(kind): tx, "balance": bal}).Write(w)
	})
}

func (s *Server) handleDelete(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParseID(r, "id")
		if !ok {
			BadRequestError("invalid id").Write(w)
			return
		}
		tx, bal, err := s.deps.Transactions.Delete(r.Context(), currentUser(r).ID, kind, id)
		if err != nil {
			s.writeError(w, r, "Delete "+string(kind), err)
			return
		}
		NewJSONResponse().JSON(map[string]any{"deleted": tx.ID, "balance": bal}).Write(w)
	})
}

func (s *Server) handleSearch(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			SearchText string `json:"searchText"`
		}
		if resp := DecodeJSON(w, r, &in); resp != nil {
			resp.Write(w)
			return
		}
		items, err := s.deps.Transactions.Search(r.Context(), currentUser(r).ID, kind, sanitizeInput(in.SearchText))
		if err != nil {
			s.writeError(w, r, "Search "+kind.Plural(), err)
			return
		}
		NewJSONResponse().JSON(map[string]any{kind.Plural(): items}).Write(w)
	})
}

func (s *Server) handleSummary(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		interval := r.PathValue("interval")
		calc := strings.TrimSpace(r.URL.Query().Get("calculation_type"))
		summary, err := s.deps.Summaries.Summarize(r.Context(), currentUser(r).ID, kind, interval, calc)
		if err != nil {
			s.writeError(w, r, "Summarize "+kind.Plural(), err)
			return
		}
		NewJSONResponse().JSON(summary).Write(w)
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.deps.Transactions.Balance(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, "Balance", err)
		return
	}
	NewJSONResponse().JSON(bal).Write(w)
}
