// Package authflow runs sign-in and the three-step signup: local field
// validation, submission, and routing of backend errors to the right place.
package authflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
)

// Form identifies which authentication form is showing.
type Form string

const (
	FormLogin  Form = "login"
	FormSignup Form = "signup"
)

const (
	// NetworkMessage is shown when the backend cannot be reached.
	NetworkMessage = "Unable to connect to the server. Please check your internet connection and try again."

	defaultRedirect = "/dashboard"
	fallbackMessage = "An unexpected error occurred"
)

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("a request is already in progress")

// API is the part of the backend the controller calls.
type API interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
	Signup(ctx context.Context, in backend.SignupRequest) (*backend.SignupResponse, error)
}

// Session persists what a successful login produces.
type Session interface {
	SetToken(token string) error
	RememberEmail(email string) error
	ForgetEmail() error
	RememberedEmail() string
}

// Controller drives the login and signup forms.
type Controller struct {
	api      API
	session  Session
	notifier notify.Notifier
	wizard   *SignupWizard

	mu   sync.Mutex
	form Form
	busy atomic.Bool
}

// NewController creates a Controller showing the login form.
func NewController(api API, session Session, notifier notify.Notifier) *Controller {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Controller{
		api:      api,
		session:  session,
		notifier: notifier,
		wizard:   NewSignupWizard(),
		form:     FormLogin,
	}
}

// Form returns the form currently showing.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Toggle switches forms. Switching to signup restarts the wizard.
func (c *Controller) Toggle(f Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == c.form {
		return
	}
	c.form = f
	if f == FormSignup {
		c.wizard.Reset()
	}
}

// Wizard returns the signup wizard.
func (c *Controller) Wizard() *SignupWizard { return c.wizard }

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }

// RememberedEmail returns the email to pre-fill on the login form.
func (c *Controller) RememberedEmail() string { return c.session.RememberedEmail() }

// ValidateField checks one input and shows its message as a field error.
func (c *Controller) ValidateField(field, value string) bool {
	if msg := ValidateField(field, value); msg != "" {
		c.notifier.FieldError(field, msg)
		return false
	}
	return true
}

// Next validates and saves the current signup step, then advances.
func (c *Controller) Next(values map[string]any) bool {
	verr := c.wizard.Next(values)
	if verr != nil {
		c.showValidation(verr)
		return false
	}
	return true
}

// Login signs in and returns the page to continue to.
func (c *Controller) Login(ctx context.Context, f LoginForm) (string, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer c.busy.Store(false)

	f.Email = strings.TrimSpace(f.Email)
	if verr := ValidateLogin(f); verr != nil {
		c.showValidation(verr)
		return "", verr
	}

	resp, err := c.api.Login(ctx, f.Email, f.Password)
	if err != nil {
		c.routeError(FormLogin, err)
		return "", err
	}

	if err := c.session.SetToken(resp.AccessToken); err != nil {
		return "", err
	}
	if f.Remember {
		err = c.session.RememberEmail(f.Email)
	} else {
		err = c.session.ForgetEmail()
	}
	if err != nil {
		log.Warn().Err(err).Msg("authflow: updating remembered email")
	}

	c.notifier.Notify(notify.Success, "Welcome back! Redirecting to your dashboard...")
	log.Info().Str("email", f.Email).Msg("signed in")

	if resp.RedirectURL == "" {
		return defaultRedirect, nil
	}
	return resp.RedirectURL, nil
}

// Signup saves the current step's values, validates everything collected
// by the wizard and creates the account. On success the wizard is reset
// and the login form is shown.
func (c *Controller) Signup(ctx context.Context, values map[string]any) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	c.wizard.Save(values)
	data := c.wizard.Data()
	if verr := ValidateSignup(data); verr != nil {
		c.showValidation(verr)
		return verr
	}

	_, err := c.api.Signup(ctx, backend.SignupRequest{
		Email:     data.String(FieldEmail),
		Password:  data.String(FieldPassword),
		FirstName: data.String(FieldFirstName),
		LastName:  data.String(FieldLastName),
	})
	if err != nil {
		c.routeError(FormSignup, err)
		return err
	}

	c.notifier.Notify(notify.Success, "Your account has been created successfully! Redirecting to login...")
	c.wizard.Reset()
	c.Toggle(FormLogin)
	return nil
}

func (c *Controller) showValidation(verr *ValidationError) {
	for _, field := range []string{FieldFirstName, FieldLastName, FieldEmail, FieldPassword} {
		if msg, ok := verr.Fields[field]; ok {
			c.notifier.FieldError(field, msg)
		}
	}
	for _, n := range verr.Notices {
		c.notifier.Notify(notify.Error, n)
	}
}

// routeError shows a backend failure. Signup failures are always a
// notification; login failures go to the field the message mentions.
func (c *Controller) routeError(form Form, err error) {
	switch backend.Classify(err) {
	case backend.KindNetwork, backend.KindTimeout:
		c.notifier.Notify(notify.Error, NetworkMessage)
		return
	}

	msg := backend.Detail(err)
	if msg == "" {
		msg = fallbackMessage
	}
	field := errorField(form, msg)
	if field == "" {
		c.notifier.Notify(notify.Error, msg)
		return
	}
	c.notifier.FieldError(field, msg)
}

// errorField picks the login field a backend message belongs to, or ""
// for a notification.
func errorField(form Form, msg string) string {
	if form == FormSignup {
		return ""
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "email"):
		return FieldEmail
	case strings.Contains(lower, "password"):
		return FieldPassword
	default:
		return ""
	}
}
