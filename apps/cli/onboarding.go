package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/onboarding"
)

// runOnboarding drives the questionnaire interactively: display the current
// question, read an answer, submit it and advance to the server-generated
// next question, until the questionnaire completes.
func (cli *commandLine) runOnboarding(childID string) error {
	ctx := context.Background()
	flow := onboarding.NewFlow(cli.conf, cli.onb, cli.log, childID)
	if err := flow.Load(ctx); err != nil {
		return err
	}

	fmt.Println("Onboarding questionnaire. Type an answer, `!skip` to skip, `!back` to review, `!quit` to stop.")
	for {
		if flow.IsTerminal() {
			cli.saveSnapshot(childID, flow)
			fmt.Println("\nAll done! The questionnaire is complete.")
			return nil
		}
		q, ok := flow.Current()
		if !ok {
			// every known question is answered; the next one is still being
			// generated server-side
			if err := flow.Load(ctx); err != nil {
				return err
			}
			if q, ok = flow.Current(); !ok && !flow.IsTerminal() {
				fmt.Println("\nThe next question is not ready yet, please try again in a moment.")
				return nil
			}
			continue
		}

		answered, target := flow.Progress()
		fmt.Printf("\n[%d/%d] %s\n", answered+1, target, q.Text)
		for i, opt := range q.Options {
			fmt.Printf("  %d) %s\n", i+1, opt.Text)
		}
		if !q.Required {
			fmt.Println("  (optional)")
		}

		line, err := promptLine("> ")
		if err != nil {
			return err
		}

		var adv onboarding.Advance
		switch line {
		case "!quit":
			cli.saveSnapshot(childID, flow)
			fmt.Println("Progress saved, come back any time.")
			return nil
		case "!back":
			prev, err := flow.Previous()
			if err == onboarding.ErrAtFirst {
				fmt.Println("Already at the first question.")
				continue
			} else if err != nil {
				return err
			}
			fmt.Printf("(reviewing) %s\n", prev.Text)
			continue
		case "!skip":
			adv, err = flow.Skip(ctx)
		default:
			ans := onboarding.Answer{QuestionID: q.ID}
			if q.IsChoice() {
				n, cerr := strconv.Atoi(line)
				if cerr != nil || n < 1 || n > len(q.Options) {
					fmt.Printf("Pick an option between 1 and %d.\n", len(q.Options))
					continue
				}
				ans.OptionID = q.Options[n-1].ID
			} else {
				ans.Text = line
			}
			fmt.Println("Submitting...")
			adv, err = flow.SubmitAnswer(ctx, ans)
		}

		switch {
		case err == nil:
			cli.saveSnapshot(childID, flow)
			if adv.Completed {
				continue // terminal check at the top prints the outro
			}
		case core.IsBusiness(err):
			fmt.Println(err.Error())
		default:
			if isValidation(err) {
				fmt.Println(friendlyErr(err).Error())
				continue
			}
			return err
		}
	}
}

func (cli *commandLine) saveSnapshot(childID string, flow *onboarding.Flow) {
	if err := cli.store.SaveSnapshot(childID, flow.Snapshot()); err != nil {
		cli.log.Warn("caching questionnaire snapshot", err)
	}
}
