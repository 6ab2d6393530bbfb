package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

const (
	maxContentBytes = 1024 * 1024
	detailNotFound  = "Document not found or access denied"
	createdLayout   = "2006-01-02T15:04:05.000000"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type ctxKey struct{}

// fieldError mirrors one entry of a request validation failure.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, errs ...fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{"detail": errs})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		u, ok := s.store.userForToken(strings.TrimPrefix(header, "Bearer "))
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func currentUser(r *http.Request) *User {
	u, _ := r.Context().Value(ctxKey{}).(*User)
	return u
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 4*maxContentBytes)).Decode(v); err != nil {
		writeValidation(w, fieldError{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"})
		return false
	}
	return true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	var errs []fieldError
	if !emailPattern.MatchString(in.Email) {
		errs = append(errs, fieldError{Loc: []string{"body", "email"}, Msg: "value is not a valid email address", Type: "value_error"})
	}
	if len(in.Password) < 8 {
		errs = append(errs, fieldError{Loc: []string{"body", "password"}, Msg: "Value error, Password must be at least 8 characters long", Type: "value_error"})
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}

	u, err := s.store.createUser(in.Email, in.Password, in.FirstName, in.LastName)
	if errors.Is(err, errEmailTaken) {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Unexpected error during signup: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User created successfully", "user_id": u.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	token, ok := s.store.authenticate(in.Email, in.Password)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"redirect_url": "/dashboard",
	})
}

func (s *Server) handleUserData(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs := s.store.listDocuments(currentUser(r).ID)
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, map[string]any{
			"id":         d.ID,
			"title":      d.Title,
			"created_at": d.CreatedAt.Format(createdLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := r.ParseMultipartForm(2 * maxContentBytes); err != nil {
		writeValidation(w, fieldError{Loc: []string{"body", "file"}, Msg: "Field required", Type: "missing"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, fieldError{Loc: []string{"body", "file"}, Msg: "Field required", Type: "missing"})
		return
	}
	defer file.Close()

	if header.Header.Get("Content-Type") != "text/plain" {
		writeDetail(w, http.StatusBadRequest, "Only plain text (text/plain) files are allowed")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".txt") {
		writeDetail(w, http.StatusBadRequest, "Only .txt files are allowed")
		return
	}
	if s.store.titleExists(user.ID, header.Filename) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("A document with the name '%s' already exists. Please choose a different name.", header.Filename))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxContentBytes+1))
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Error processing upload: "+err.Error())
		return
	}
	if len(content) > maxContentBytes {
		writeDetail(w, http.StatusBadRequest, "File size exceeds 1MB limit")
		return
	}
	if !utf8.Valid(content) {
		writeDetail(w, http.StatusBadRequest, "File must be a valid UTF-8 text file")
		return
	}

	d, ok := s.store.createDocument(user.ID, header.Filename, string(content))
	if !ok {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("A document with the name '%s' already exists. Please choose a different name.", header.Filename))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Document uploaded successfully",
		"document_id": d.ID,
		"filename":    d.Title,
	})
}

func (s *Server) handleNextUntitled(w http.ResponseWriter, r *http.Request) {
	var titles []string
	for _, d := range s.store.listDocuments(currentUser(r).ID) {
		titles = append(titles, d.Title)
	}
	next := NextUntitledNumber(titles)
	writeJSON(w, http.StatusOK, map[string]any{
		"nextNumber": next,
		"message":    fmt.Sprintf("Next available number is %d", next),
	})
}

// NextUntitledNumber returns one more than the highest N among titles of
// the form "Untitled N.txt", or 1 when there are none.
func NextUntitledNumber(titles []string) int {
	highest := 0
	for _, title := range titles {
		if !strings.HasPrefix(title, "Untitled ") || !strings.HasSuffix(title, ".txt") {
			continue
		}
		numberPart := strings.TrimSuffix(strings.TrimPrefix(title, "Untitled "), ".txt")
		n, err := strconv.Atoi(numberPart)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}

func (s *Server) handleCheckFilename(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		name = chi.URLParam(r, "filename")
	}
	exists := s.store.titleExists(currentUser(r).ID, name)
	msg := "Filename is available"
	if exists {
		msg = "Filename already exists"
	}
	writeJSON(w, http.StatusOK, map[string]any{"filename": name, "exists": exists, "message": msg})
}

func (s *Server) handleSubmitTraining(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OriginalText      string `json:"original_text"`
		TeacherCorrection string `json:"teacher_correction"`
		CBCFeedback       string `json:"cbc_feedback"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	rec := TrainingRecord{
		OriginalText:      strings.TrimSpace(in.OriginalText),
		TeacherCorrection: strings.TrimSpace(in.TeacherCorrection),
		CBCFeedback:       strings.TrimSpace(in.CBCFeedback),
	}
	switch {
	case rec.OriginalText == "":
		writeDetail(w, http.StatusBadRequest, "Original text is required")
		return
	case rec.TeacherCorrection == "":
		writeDetail(w, http.StatusBadRequest, "Teacher correction is required")
		return
	case rec.CBCFeedback == "":
		writeDetail(w, http.StatusBadRequest, "CBC feedback is required")
		return
	}
	rec = s.store.addTraining(rec)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Training data submitted successfully",
		"training_data_id": rec.ID,
		"submitted_at":     "now",
	})
}

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidation(w, fieldError{Loc: []string{"path", "doc_id"}, Msg: "Input should be a valid integer", Type: "int_parsing"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	d, err := s.store.document(currentUser(r).ID, id)
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"content":    d.Content,
		"created_at": d.CreatedAt.Format(createdLayout),
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if size := len(in.Content); size > maxContentBytes {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Document content exceeds 1MB limit. Current size: %d bytes", size))
		return
	}
	err := s.store.updateDocument(currentUser(r).ID, id, func(d *Document) { d.Content = in.Content })
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Document updated successfully", "document_id": id})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var in struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		writeDetail(w, http.StatusBadRequest, "Document title cannot be empty")
		return
	}
	err := s.store.updateDocument(currentUser(r).ID, id, func(d *Document) { d.Title = title })
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Document renamed successfully", "document_id": id, "new_title": title})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	d, err := s.store.deleteDocument(currentUser(r).ID, id)
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Document deleted successfully", "document_id": id, "deleted_title": d.Title})
}
