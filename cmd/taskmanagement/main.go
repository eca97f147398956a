package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/taskmanagement/internal/client"
	"github.com/kazz187/taskmanagement/internal/task"
)

var (
	app    = kingpin.New("taskmanagement", "Command line client for the task management service")
	apiURL = app.Flag("url", "Base URL of the task service").Envar("TASKMANAGEMENT_URL").Default("http://localhost:5000").String()

	listCmd   = app.Command("list", "List tasks, newest first")
	listEmail = listCmd.Flag("email", "Only tasks owned by this email").String()

	getCmd = app.Command("get", "Show one task")
	getID  = getCmd.Arg("id", "Task ID").Required().String()

	createCmd    = app.Command("create", "Create a task (status starts as backlog)")
	createFields = fieldFlags(createCmd)

	statusCmd   = app.Command("status", "Set the status of a task")
	statusID    = statusCmd.Arg("id", "Task ID").Required().String()
	statusValue = statusCmd.Arg("status", "New status").Required().String()

	editCmd    = app.Command("edit", "Overwrite every editable field of a task")
	editID     = editCmd.Arg("id", "Task ID").Required().String()
	editFields = fieldFlags(editCmd)

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()
)

type fieldValues struct {
	name, email, title, descriptions, dateForm, dateToo, priority *string
}

func fieldFlags(cmd *kingpin.CmdClause) *fieldValues {
	return &fieldValues{
		name:         cmd.Flag("name", "Owner name").String(),
		email:        cmd.Flag("email", "Owner email").String(),
		title:        cmd.Flag("title", "Title").String(),
		descriptions: cmd.Flag("descriptions", "Description").String(),
		dateForm:     cmd.Flag("date-form", "Start date").String(),
		dateToo:      cmd.Flag("date-too", "End date").String(),
		priority:     cmd.Flag("priority", "Priority").String(),
	}
}

func (v *fieldValues) fields() task.Fields {
	return task.Fields{
		Name:         *v.name,
		Email:        *v.email,
		Title:        *v.title,
		Descriptions: *v.descriptions,
		DateForm:     *v.dateForm,
		DateToo:      *v.dateToo,
		Priority:     *v.priority,
	}
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.NewTaskClient(*apiURL, nil)
	if err := run(ctx, c, command, os.Stdout); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.TaskClient, command string, w io.Writer) error {
	switch command {
	case listCmd.FullCommand():
		tasks, err := c.ListTasks(ctx, *listEmail)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			printTaskLine(w, t)
		}
		return nil
	case getCmd.FullCommand():
		t, err := c.GetTask(ctx, *getID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("task %s not found", *getID)
		}
		return printJSON(w, t)
	case createCmd.FullCommand():
		res, err := c.CreateTask(ctx, createFields.fields())
		if err != nil {
			return err
		}
		return printJSON(w, res)
	case statusCmd.FullCommand():
		msg, err := c.UpdateTaskStatus(ctx, *statusID, *statusValue)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(w, msg)
		return nil
	case editCmd.FullCommand():
		res, err := c.ReplaceTask(ctx, *editID, editFields.fields())
		if err != nil {
			return err
		}
		return printJSON(w, res)
	case deleteCmd.FullCommand():
		res, err := c.DeleteTask(ctx, *deleteID)
		if err != nil {
			return err
		}
		return printJSON(w, res)
	}
	return fmt.Errorf("unknown command %q", command)
}

func printTaskLine(w io.Writer, t *task.Task) {
	color.New(color.Faint).Fprintf(w, "%s ", t.ID)
	statusColor(t.Status).Fprintf(w, "%-12s ", t.Status)
	fmt.Fprintf(w, "%s", t.Title)
	if t.Email != "" {
		color.New(color.FgCyan).Fprintf(w, " <%s>", t.Email)
	}
	fmt.Fprintln(w)
}

func statusColor(status string) *color.Color {
	switch status {
	case task.DefaultStatus:
		return color.New(color.FgYellow)
	case "done", "completed":
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgBlue)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
