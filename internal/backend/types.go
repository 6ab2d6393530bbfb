package backend

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	RedirectURL string `json:"redirect_url"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SignupResponse is returned by a successful signup.
type SignupResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// User is the signed-in user's profile.
type User struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DocumentSummary is one entry of the document list.
type DocumentSummary struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Document is a stored document with its content. Content is HTML once
// the document has been saved from the editor, plain text after an upload.
type Document struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// UploadResult is returned by POST /documents/upload.
type UploadResult struct {
	Message    string `json:"message"`
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
}

// FilenameCheck is returned by GET /documents/check-filename/{name}.
type FilenameCheck struct {
	Filename string `json:"filename"`
	Exists   bool   `json:"exists"`
	Message  string `json:"message"`
}

// TrainingData is a teacher correction submitted for model training.
type TrainingData struct {
	OriginalText      string `json:"original_text"`
	TeacherCorrection string `json:"teacher_correction"`
	CBCFeedback       string `json:"cbc_feedback"`
}

// TrainingResult is returned by POST /documents/submit-training-data.
type TrainingResult struct {
	Message        string `json:"message"`
	TrainingDataID int64  `json:"training_data_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type nextNumberResponse struct {
	NextNumber int    `json:"nextNumber"`
	Message    string `json:"message"`
}
