package main

import (
	"context"
	"fmt"

	"github.com/nurturehq/nurture/core/child"
)

func (cli *commandLine) showProfile() error {
	p, err := cli.children.Profile(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", p.Name, p.Email)
	if p.Phone.Valid {
		fmt.Printf("phone: %s\n", p.Phone.String)
	}
	fmt.Printf("children: %d\n", len(p.Children))
	return nil
}

func (cli *commandLine) editProfile(name, phone string) error {
	p, err := cli.children.UpdateProfile(context.Background(), child.UpdateParent{Name: name, Phone: phone})
	if err != nil {
		return friendlyErr(err)
	}
	fmt.Printf("Profile updated: %s <%s>\n", p.Name, p.Email)
	return nil
}

func (cli *commandLine) listChildren() error {
	children, err := cli.children.Children(context.Background())
	if err != nil {
		return err
	}
	if len(children) == 0 {
		fmt.Println("No children yet. Add one with `addchild`.")
		return nil
	}
	for _, c := range children {
		fmt.Printf("%s  %-20s %s  %s", c.ID, c.Name, c.BirthDate.Format("2006-01-02"), c.Gender)
		if c.QuestionnaireStatus.Valid {
			fmt.Printf("  onboarding: %s", c.QuestionnaireStatus.String)
		}
		fmt.Println()
	}
	return nil
}

func (cli *commandLine) addChild(nc child.NewChild) error {
	p, err := cli.children.AddChild(context.Background(), nc)
	if err != nil {
		return friendlyErr(err)
	}
	c := p.Children[len(p.Children)-1]
	fmt.Printf("Added %s (id %s). Run `onboarding -child %s` to get started.\n", c.Name, c.ID, c.ID)
	return nil
}

func (cli *commandLine) editChild(id string, uc child.UpdateChild) error {
	p, err := cli.children.UpdateChild(context.Background(), id, uc)
	if err != nil {
		return friendlyErr(err)
	}
	if c, ok := p.ChildByID(id); ok {
		fmt.Printf("Updated %s.\n", c.Name)
	}
	return nil
}
