package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vncsmyrnk/polls/internal/adapters/repository"
	"github.com/vncsmyrnk/polls/internal/config"
	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
	"github.com/vncsmyrnk/polls/internal/core/services"
)

const usage = `usage: pollsctl [-t sqlite|postgres] [-d url] <command> [flags]

commands:
  create -text TEXT -choice A -choice B [-publish-in 0s]
  list
  results
  delete -id N`

// multiFlag collects a repeated string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ", ") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}

	var dbType, dbURL string
	flag.StringVar(&dbType, "t", "", "Database type (sqlite or postgres)")
	flag.StringVar(&dbURL, "d", "", "Database URL, or a file path for sqlite")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal(usage)
	}

	dbType, dbURL, err := config.ResolveDatabase(dbType, dbURL, os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	// Use a timeout so a stuck database does not hang the command
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, dbType, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	admin := services.NewAdminService(store.Questions, nil, time.Local)

	if err := run(ctx, os.Stdout, admin, services.NewSummaryService(store.Questions), flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, out io.Writer, admin ports.AdminService, summary ports.SummaryService, command string, args []string) error {
	switch command {
	case "create":
		return create(ctx, out, admin, args)
	case "list":
		return list(ctx, out, admin)
	case "results":
		return results(ctx, out, summary)
	case "delete":
		return remove(ctx, out, admin, args)
	default:
		return errors.New(usage)
	}
}

func create(ctx context.Context, out io.Writer, admin ports.AdminService, args []string) error {
	var (
		text      string
		choices   multiFlag
		publishIn time.Duration
	)
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.StringVar(&text, "text", "", "Question text")
	fs.Var(&choices, "choice", "Choice text, repeatable")
	fs.DurationVar(&publishIn, "publish-in", 0, "Publish after this delay, negative for the past")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := ports.QuestionInput{
		Text:        text,
		PublishDate: time.Now().Add(publishIn),
	}
	for _, c := range choices {
		input.Choices = append(input.Choices, ports.ChoiceInput{Text: c})
	}

	question, err := admin.CreateQuestion(ctx, input)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(out, "%s: %s\n", field, msg)
			}
		}
		return err
	}

	fmt.Fprintf(out, "Created question %d with %d choices.\n", question.ID, len(question.Choices))
	return nil
}

func list(ctx context.Context, out io.Writer, admin ports.AdminService) error {
	questions, err := admin.ListQuestions(ctx, ports.ListQuestionsInput{})
	if err != nil {
		return err
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPUBLISHED\tRECENT\tQUESTION")
	for _, q := range questions {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", q.ID, q.PublishDate.Local().Format(time.DateTime), q.WasPublishedRecently(now), q.Text)
	}
	return w.Flush()
}

func results(ctx context.Context, out io.Writer, summary ports.SummaryService) error {
	summaries, err := summary.Summarize(ctx)
	if err != nil {
		return fmt.Errorf("error summarizing votes: %w", err)
	}

	for _, s := range summaries {
		fmt.Fprintf(out, "%d. %s (%d votes)\n", s.Question.ID, s.Question.Text, s.TotalVotes)
		for _, r := range s.Results {
			fmt.Fprintf(out, "   %-30s %6d  %5.1f%%\n", r.Text, r.Votes, r.Percentage)
		}
	}
	return nil
}

func remove(ctx context.Context, out io.Writer, admin ports.AdminService, args []string) error {
	var id string
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.StringVar(&id, "id", "", "Question id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := admin.DeleteQuestion(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(out, "Deleted question %s.\n", id)
	return nil
}
