package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/session"
)

func (cli *commandLine) login(email, pwd string) error {
	acct, err := cli.sess.SignIn(context.Background(), session.Credentials{Email: email, Password: pwd})
	if err != nil {
		return friendlyErr(err)
	}
	fmt.Printf("Signed in as %s <%s>\n", acct.Name, acct.Email)
	return nil
}

func (cli *commandLine) signup(name, email, pwd, confirm string) error {
	acct, err := cli.sess.SignUp(context.Background(), session.NewAccount{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: confirm,
	})
	if err != nil {
		return friendlyErr(err)
	}
	fmt.Printf("Welcome, %s! You are signed in as <%s>\n", acct.Name, acct.Email)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.sess.SignOut(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func (cli *commandLine) whoami() error {
	acct, err := cli.sess.Account()
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", acct.Name, acct.Email)
	return nil
}

func isValidation(err error) bool {
	switch err.(type) {
	case validator.ValidationErrors, *core.ValidationError:
		return true
	}
	return false
}

// friendlyErr flattens validation field errors into the error message.
func friendlyErr(err error) error {
	switch err := err.(type) {
	case validator.ValidationErrors:
		flds := make([]string, 0, len(err))
		for _, vErr := range err {
			flds = append(flds, fmt.Sprintf("%s: %s", vErr.Field(), vErr.Translate(core.Translator)))
		}
		return fmt.Errorf("invalid input (%s)", strings.Join(flds, "; "))
	case *core.ValidationError:
		if len(err.Fields) == 0 {
			return err
		}
		flds := make([]string, 0, len(err.Fields))
		for _, fErr := range err.Fields {
			flds = append(flds, fmt.Sprintf("%s: %s", fErr.Field, fErr.Error))
		}
		return fmt.Errorf("%s (%s)", err.Error(), strings.Join(flds, "; "))
	}
	return err
}
