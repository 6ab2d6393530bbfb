package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	errEmailTaken = errors.New("email already registered")
	errNotFound   = errors.New("document not found")
)

// User is an account held by the development server.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	passwordHash []byte
}

// Document is a stored document.
type Document struct {
	ID        int64
	UserID    int64
	Title     string
	Content   string
	CreatedAt time.Time
}

// TrainingRecord is a submitted teacher correction.
type TrainingRecord struct {
	ID                int64
	OriginalText      string
	TeacherCorrection string
	CBCFeedback       string
	SubmittedAt       time.Time
}

type store struct {
	mu sync.Mutex

	nextUserID     int64
	nextDocID      int64
	nextTrainingID int64

	users    map[string]*User // by lowercased email
	tokens   map[string]int64 // token -> user id
	docs     map[int64]*Document
	training []TrainingRecord

	now      func() time.Time
	hashCost int
}

func newStore() *store {
	return &store{
		users:    make(map[string]*User),
		tokens:   make(map[string]int64),
		docs:     make(map[int64]*Document),
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *store) createUser(email, password, first, last string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := s.users[key]; ok {
		return nil, errEmailTaken
	}
	s.nextUserID++
	u := &User{ID: s.nextUserID, Email: email, FirstName: first, LastName: last, passwordHash: hash}
	s.users[key] = u
	return u, nil
}

// authenticate returns a fresh token for valid credentials.
func (s *store) authenticate(email, password string) (string, bool) {
	s.mu.Lock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return "", false
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = u.ID
	s.mu.Unlock()
	return token, true
}

func (s *store) userForToken(token string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

func (s *store) revokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
}

func (s *store) titleExists(userID int64, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.titleExistsLocked(userID, title)
}

func (s *store) titleExistsLocked(userID int64, title string) bool {
	for _, d := range s.docs {
		if d.UserID == userID && d.Title == title {
			return true
		}
	}
	return false
}

func (s *store) createDocument(userID int64, title, content string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleExistsLocked(userID, title) {
		return nil, false
	}
	s.nextDocID++
	d := &Document{ID: s.nextDocID, UserID: userID, Title: title, Content: content, CreatedAt: s.now()}
	s.docs[d.ID] = d
	return d, true
}

func (s *store) listDocuments(userID int64) []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *store) document(userID, id int64) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return Document{}, errNotFound
	}
	return *d, nil
}

func (s *store) updateDocument(userID, id int64, fn func(*Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return errNotFound
	}
	fn(d)
	return nil
}

func (s *store) deleteDocument(userID, id int64) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.UserID != userID {
		return Document{}, errNotFound
	}
	delete(s.docs, id)
	return *d, nil
}

func (s *store) addTraining(rec TrainingRecord) TrainingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTrainingID++
	rec.ID = s.nextTrainingID
	rec.SubmittedAt = s.now()
	s.training = append(s.training, rec)
	return rec
}
