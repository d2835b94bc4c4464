package main

import (
	"fmt"
	"log"
	"os"

	"sandbox-harness/config"
	"sandbox-harness/javarunner"
	"sandbox-harness/pyrunner"
	"sandbox-harness/runlog"
	"sandbox-harness/sandbox"
	"sandbox-harness/summary"
	"sandbox-harness/viewer"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "sandbox-harness",
		Usage:   "test pipelines and grading tools for sandboxed submissions",
		Version: Version,
		Commands: []*cli.Command{
			javaCommand(),
			pythonCommand(),
			gradeCommand(),
			summarizeCommand(),
			viewCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func javaCommand() *cli.Command {
	return &cli.Command{
		Name:  "java",
		Usage: "run the in-sandbox Java pipeline: compile, per-class runs, merged report",
		Action: func(*cli.Context) error {
			config.LoadEnv()
			rec := runlog.FromEnv("java")
			defer rec.Close()

			outcome := javarunner.NewPipeline(config.JavaFromEnv(), rec, pipelineProgress).Run()
			fmt.Printf("pipeline finished: %s\n", outcome)
			// The report carries the outcome; the process itself always succeeds.
			return nil
		},
	}
}

func pythonCommand() *cli.Command {
	return &cli.Command{
		Name:  "python",
		Usage: "run the in-sandbox Python pipeline: one pytest invocation, direct report",
		Action: func(*cli.Context) error {
			config.LoadEnv()
			rec := runlog.FromEnv("python")
			defer rec.Close()

			outcome := pyrunner.NewPipeline(config.PythonFromEnv(), rec, pipelineProgress).Run()
			fmt.Printf("pipeline finished: %s\n", outcome)
			// The report carries the outcome; the process itself always succeeds.
			return nil
		},
	}
}

func gradeCommand() *cli.Command {
	return &cli.Command{
		Name:  "grade",
		Usage: "run a submission against a test suite in a sandbox container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "language",
				Aliases:  []string{"l"},
				Usage:    "runtime to grade against (java, python)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "submission",
				Aliases:  []string{"s"},
				Usage:    "student code: directory, zip archive or single file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "tests",
				Aliases:  []string{"t"},
				Usage:    "test suite: directory, zip archive or single file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "settings",
				Usage: "sandbox settings file",
				Value: "sandbox.yaml",
			},
			&cli.StringFlag{
				Name:  "report-out",
				Usage: "copy the raw report document to this path",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the summary as JSON instead of a table",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "stream every container log line",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "stream only verdict and error lines",
			},
		},
		Action: runGrade,
	}
}

func runGrade(c *cli.Context) error {
	config.LoadEnv()

	settings, err := config.ReadSandboxSettings(c.String("settings"))
	if err != nil {
		return err
	}

	level := sandbox.FilterBasic
	if c.Bool("verbose") {
		level = sandbox.FilterNone
	} else if c.Bool("quiet") {
		level = sandbox.FilterMinimal
	}

	// Progress goes to stderr so stdout stays a clean summary stream.
	runner := sandbox.NewRunner(settings, func(message string) {
		fmt.Fprintln(os.Stderr, message)
	})

	result, err := runner.Run(sandbox.RunRequest{
		Language:    c.String("language"),
		Submission:  c.String("submission"),
		Tests:       c.String("tests"),
		FilterLevel: level,
	})
	if err != nil {
		return err
	}

	if out := c.String("report-out"); out != "" && result.RawReport != nil {
		if err := os.WriteFile(out, result.RawReport, 0o644); err != nil {
			return fmt.Errorf("failed to write report copy: %w", err)
		}
	}

	if c.Bool("json") {
		return summary.WriteJSON(os.Stdout, result.Summary)
	}
	return summary.WriteTable(os.Stdout, result.Summary)
}

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "normalize a report document into a grading summary",
		ArgsUsage: "<report.xml>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the summary as JSON instead of a table",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("usage: summarize <report.xml>", 1)
			}

			s := summary.NewNormalizer().Normalize(path)
			if c.Bool("json") {
				return summary.WriteJSON(os.Stdout, s)
			}
			return summary.WriteTable(os.Stdout, s)
		},
	}
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "browse a report document interactively",
		ArgsUsage: "<report.xml>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("usage: view <report.xml>", 1)
			}
			return viewer.Run(path)
		},
	}
}

func pipelineProgress(message string) {
	fmt.Println(message)
}
