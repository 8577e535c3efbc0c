package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nurturehq/nurture/core/activity"
)

func (cli *commandLine) showActivity(childID, feature string) error {
	act, err := cli.acts.Get(context.Background(), childID, feature)
	if err != nil {
		return err
	}
	printActivity(act)
	return nil
}

func (cli *commandLine) startActivity(childID, feature string) error {
	act, err := cli.acts.Start(context.Background(), childID, feature)
	if err != nil {
		return err
	}
	fmt.Printf("Started %q.\n", act.Title)
	printActivity(act)
	return nil
}

// completeActivity prompts for the activity's answers (choice questions by
// number, otherwise free text) and submits them.
func (cli *commandLine) completeActivity(childID, feature string) error {
	ctx := context.Background()
	act, err := cli.acts.Get(ctx, childID, feature)
	if err != nil {
		return err
	}
	printActivity(act)

	var sub activity.Submission
	for _, q := range act.Questions {
		fmt.Printf("\n%s\n", q.Text)
		for i, c := range q.Choices {
			fmt.Printf("  %d) %s\n", i+1, c)
		}
		line, err := promptLine("> ")
		if err != nil {
			return err
		}
		sel := activity.AnswerSelection{QuestionID: q.ID, SelectedAnswer: line}
		if len(q.Choices) > 0 {
			n, cerr := strconv.Atoi(line)
			if cerr != nil || n < 1 || n > len(q.Choices) {
				return fmt.Errorf("pick an option between 1 and %d", len(q.Choices))
			}
			sel.SelectedAnswer = q.Choices[n-1]
			sel.SelectedIndex = n - 1
		}
		sub.Answers = append(sub.Answers, sel)
	}
	if len(act.Questions) == 0 {
		text, err := promptLine("Your entry: ")
		if err != nil {
			return err
		}
		sub.Text = text
	}

	act, err = cli.acts.Complete(ctx, childID, feature, sub)
	if err != nil {
		return friendlyErr(err)
	}
	fmt.Printf("Completed %q. Nice work!\n", act.Title)
	return nil
}

func (cli *commandLine) chat(childID string) error {
	ctx := context.Background()
	fmt.Println("Chat with the assistant. An empty message ends the conversation.")
	for {
		line, err := promptLine("you> ")
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		reply, err := cli.acts.Chat(ctx, childID, line)
		if err != nil {
			return err
		}
		fmt.Printf("assistant> %s\n", reply.Content)
	}
}

func (cli *commandLine) chatHistory(childID string) error {
	msgs, err := cli.acts.ChatHistory(context.Background(), childID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Printf("%s> %s\n", m.Role, m.Content)
	}
	return nil
}

func printActivity(act activity.Activity) {
	fmt.Printf("%s [%s] - %s\n", act.Feature, act.Status, act.Title)
	if act.Description.Valid {
		fmt.Println(act.Description.String)
	}
	if act.Content.Valid {
		fmt.Printf("\n%s\n", act.Content.String)
	}
}
