package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/activity"
	"github.com/nurturehq/nurture/core/child"
	"github.com/nurturehq/nurture/core/onboarding"
	"github.com/nurturehq/nurture/core/session"
	sessionstore "github.com/nurturehq/nurture/storage/session"
)

var (
	readPasswordFunc = term.ReadPassword         // mockable
	stdin            = bufio.NewReader(os.Stdin) // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	log      core.Logger
	sess     *session.Session
	store    *sessionstore.Store
	children *child.Service
	acts     *activity.Service
	onb      onboarding.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  login -email EMAIL - sign in (the password will be prompted)")
	fmt.Println("  signup -name NAME -email EMAIL - create a parent account")
	fmt.Println("  logout - sign out and clear the local session")
	fmt.Println("  whoami - show the signed-in parent")
	fmt.Println("  profile [-name NAME] [-phone PHONE] - show or update the profile")
	fmt.Println("  children - list the children on the profile")
	fmt.Println("  addchild -name NAME -birthdate YYYY-MM-DD -gender female|male|other [-notes NOTES]")
	fmt.Println("  editchild -id ID [-name NAME] [-birthdate YYYY-MM-DD] [-gender GENDER] [-notes NOTES]")
	fmt.Println("  onboarding -child ID - run the onboarding questionnaire")
	fmt.Printf("  activity -child ID -feature %s [-start|-complete]\n", strings.Join(activity.Features, "|"))
	fmt.Println("  chat -child ID [-history] - chat with the assistant")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "The parent's email. The password will be prompted next.")

	signupCmd := flag.NewFlagSet("signup", flag.ExitOnError)
	signupName := signupCmd.String("name", "", "The parent's full name.")
	signupEmail := signupCmd.String("email", "", "The parent's email. The password will be prompted next.")

	profileCmd := flag.NewFlagSet("profile", flag.ExitOnError)
	profileName := profileCmd.String("name", "", "New display name.")
	profilePhone := profileCmd.String("phone", "", "New phone number, E.164 format.")

	addChildCmd := flag.NewFlagSet("addchild", flag.ExitOnError)
	addChildName := addChildCmd.String("name", "", "The child's name.")
	addChildBirth := addChildCmd.String("birthdate", "", "The child's birth date, YYYY-MM-DD.")
	addChildGender := addChildCmd.String("gender", "", "female, male or other.")
	addChildNotes := addChildCmd.String("notes", "", "Free-form notes.")

	editChildCmd := flag.NewFlagSet("editchild", flag.ExitOnError)
	editChildID := editChildCmd.String("id", "", "The child's id (see `children`).")
	editChildName := editChildCmd.String("name", "", "New name.")
	editChildBirth := editChildCmd.String("birthdate", "", "New birth date, YYYY-MM-DD.")
	editChildGender := editChildCmd.String("gender", "", "female, male or other.")
	editChildNotes := editChildCmd.String("notes", "", "New notes.")

	onboardingCmd := flag.NewFlagSet("onboarding", flag.ExitOnError)
	onboardingChild := onboardingCmd.String("child", "", "The child's id (see `children`).")

	activityCmd := flag.NewFlagSet("activity", flag.ExitOnError)
	activityChild := activityCmd.String("child", "", "The child's id (see `children`).")
	activityFeature := activityCmd.String("feature", "", "The activity feature name.")
	activityStart := activityCmd.Bool("start", false, "Start the activity.")
	activityComplete := activityCmd.Bool("complete", false, "Complete the activity (answers will be prompted).")

	chatCmd := flag.NewFlagSet("chat", flag.ExitOnError)
	chatChild := chatCmd.String("child", "", "The child's id (see `children`).")
	chatHistory := chatCmd.Bool("history", false, "Show the conversation history instead of sending a message.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginEmail, pwd)
	case "signup":
		if err := signupCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *signupEmail == "" || *signupName == "" {
			signupCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		return cli.signup(*signupName, *signupEmail, pwd, confirm)
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "profile":
		if err := profileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *profileName == "" && *profilePhone == "" {
			return cli.showProfile()
		}
		return cli.editProfile(*profileName, *profilePhone)
	case "children":
		return cli.listChildren()
	case "addchild":
		if err := addChildCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addChildName == "" || *addChildBirth == "" || *addChildGender == "" {
			addChildCmd.Usage()
			return errHelp
		}
		birth, err := parseDate(*addChildBirth)
		if err != nil {
			return err
		}
		return cli.addChild(child.NewChild{
			Name:      *addChildName,
			BirthDate: birth,
			Gender:    *addChildGender,
			Notes:     *addChildNotes,
		})
	case "editchild":
		if err := editChildCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *editChildID == "" {
			editChildCmd.Usage()
			return errHelp
		}
		uc := child.UpdateChild{Name: *editChildName, Gender: *editChildGender}
		if *editChildBirth != "" {
			birth, err := parseDate(*editChildBirth)
			if err != nil {
				return err
			}
			uc.BirthDate = birth
		}
		if isFlagSet(editChildCmd, "notes") {
			uc.Notes = editChildNotes
		}
		return cli.editChild(*editChildID, uc)
	case "onboarding":
		if err := onboardingCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *onboardingChild == "" {
			onboardingCmd.Usage()
			return errHelp
		}
		return cli.runOnboarding(*onboardingChild)
	case "activity":
		if err := activityCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *activityChild == "" || *activityFeature == "" {
			activityCmd.Usage()
			return errHelp
		}
		switch {
		case *activityStart:
			return cli.startActivity(*activityChild, *activityFeature)
		case *activityComplete:
			return cli.completeActivity(*activityChild, *activityFeature)
		default:
			return cli.showActivity(*activityChild, *activityFeature)
		}
	case "chat":
		if err := chatCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *chatChild == "" {
			chatCmd.Usage()
			return errHelp
		}
		if *chatHistory {
			return cli.chatHistory(*chatChild)
		}
		return cli.chat(*chatChild)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", v)
	}
	return t, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	var set bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
