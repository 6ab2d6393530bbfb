package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/authflow"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account with the three-step signup wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctrl := authflow.NewController(a.client, a.session, a.notes)
		ctrl.Toggle(authflow.FormSignup)
		wizard := ctrl.Wizard()

		for {
			step := wizard.Current()
			fmt.Printf("\nStep %d of %d\n", step, authflow.TotalSteps)

			values, err := promptStep(wizard, step)
			if err != nil {
				return err
			}
			if step < authflow.TotalSteps {
				ctrl.Next(values)
				continue
			}

			err = ctrl.Signup(cmd.Context(), values)
			if err == nil {
				fmt.Println("Run `coach login` to sign in.")
				return nil
			}
			var verr *authflow.ValidationError
			if !errors.As(err, &verr) {
				return errors.New("signup failed")
			}
			wizard.GoTo(firstInvalidStep(wizard, verr))
		}
	},
}

// firstInvalidStep returns the step holding the first rejected field, or
// the last step when only the terms notice was raised.
func firstInvalidStep(wizard *authflow.SignupWizard, verr *authflow.ValidationError) int {
	for step := 1; step < authflow.TotalSteps; step++ {
		for _, field := range wizard.Fields(step) {
			if _, bad := verr.Fields[field]; bad {
				return step
			}
		}
	}
	return authflow.TotalSteps
}

// promptStep asks for every input on step, pre-filled with saved values.
func promptStep(wizard *authflow.SignupWizard, step int) (map[string]any, error) {
	saved := wizard.Data()
	values := make(map[string]any)
	for _, field := range wizard.Fields(step) {
		label := authflow.FormatFieldName(field)
		switch field {
		case authflow.FieldTerms:
			accept := promptui.Select{
				Label: "Accept the Terms of Service and Privacy Policy?",
				Items: []string{"Yes", "No"},
			}
			idx, _, err := accept.Run()
			if err != nil {
				return nil, err
			}
			values[field] = idx == 0
		case authflow.FieldPassword:
			password, err := askSecret(label, fieldValidator(field))
			if err != nil {
				return nil, err
			}
			fmt.Println(authflow.PasswordStrength(password).Describe(password))
			values[field] = password
		default:
			value, err := ask(label, saved.String(field), fieldValidator(field))
			if err != nil {
				return nil, err
			}
			values[field] = value
		}
	}
	return values, nil
}

func init() {
	rootCmd.AddCommand(signupCmd)
}
