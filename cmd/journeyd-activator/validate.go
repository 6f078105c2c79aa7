package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"

	"github.com/funnelworks/journeyd/pkg/cmd"
	"github.com/funnelworks/journeyd/pkg/models"
)

var validate *validator.Validate

// Static error variables for linter compliance.
var (
	ErrInvalidTriggerNodes = errors.New("invalid trigger nodes found")
	ErrInvalidNodes        = errors.New("invalid nodes found")
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate automation graphs and trigger configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			validate = validator.New(validator.WithRequiredStructEnabled())

			logger := slog.With(
				"module", "journeyd-activator",
				"action", "validate",
			)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					return
				}
			}()

			automations, err := persistence.Automations().All(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch automations: %w", err)
			}

			logger.Info("Validating automation graphs", "automations", len(automations))

			_, _ = fmt.Fprintln(os.Stdout, "Automation Graph Validation Results:")
			_, _ = fmt.Fprintln(os.Stdout, "=====================================")

			validTriggerNodes := 0
			invalidTriggerNodes := 0
			validNodes := 0
			invalidNodes := 0

			for _, automation := range automations {
				_, _ = fmt.Fprintf(os.Stdout, "\nAutomation: %s (%s)\n", automation.Name, automation.ID)

				trigger := automation.Graph.TriggerNode()
				if trigger == nil {
					_, _ = fmt.Fprintf(os.Stdout, "    INVALID: No trigger node found for this automation.\n")
					invalidTriggerNodes++

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "  Trigger Node: %s (TriggerType: %s)\n", trigger.ID, automation.TriggerType)

				if err := validate.Struct(trigger); err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "    INVALID: %v\n", err)
					invalidTriggerNodes++

					continue
				}

				if _, err := trigger.TriggerConfig(); err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "    INVALID: malformed trigger config: %v\n", err)
					invalidTriggerNodes++

					continue
				}

				if automation.TriggerType == "" {
					_, _ = fmt.Fprintf(os.Stdout, "    INVALID: TriggerType is required for event matching\n")
					invalidTriggerNodes++

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "    VALID\n")
				validTriggerNodes++

				for _, node := range automation.Graph.Nodes {
					if node.Type == models.NodeTypeTrigger {
						continue // Already validated above
					}

					_, _ = fmt.Fprintf(os.Stdout, "  Node: %s (%s)\n", node.ID, node.Type)

					if err := validateNode(node); err != nil {
						_, _ = fmt.Fprintf(os.Stdout, "    INVALID: %v\n", err)
						invalidNodes++
					} else {
						validNodes++
						_, _ = fmt.Fprintf(os.Stdout, "    VALID\n")
					}
				}
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nValidation Summary:\n")
			_, _ = fmt.Fprintf(os.Stdout, "  Total trigger nodes: %d\n", invalidTriggerNodes+validTriggerNodes)
			_, _ = fmt.Fprintf(os.Stdout, "  Valid trigger nodes: %d\n", validTriggerNodes)
			_, _ = fmt.Fprintf(os.Stdout, "  Invalid trigger nodes: %d\n", invalidTriggerNodes)
			_, _ = fmt.Fprintf(os.Stdout, "  Total other nodes: %d\n", invalidNodes+validNodes)
			_, _ = fmt.Fprintf(os.Stdout, "  Valid other nodes: %d\n", validNodes)
			_, _ = fmt.Fprintf(os.Stdout, "  Invalid other nodes: %d\n", invalidNodes)

			if invalidTriggerNodes > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidTriggerNodes, invalidTriggerNodes)
			}

			if invalidNodes > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidNodes, invalidNodes)
			}

			_, _ = fmt.Fprintln(os.Stdout, "All automation graphs are valid for activator processing!")

			return nil
		},
	}
}

// validateNode checks the structural validity of a non-trigger node,
// including that wait_event nodes name the event they wait for.
func validateNode(node *models.Node) error {
	if err := validate.Struct(node); err != nil {
		return err
	}

	if node.Type == models.NodeTypeWaitEvent {
		config, err := node.WaitEventConfig()
		if err != nil {
			return fmt.Errorf("malformed wait_event config: %w", err)
		}

		if config.Event == "" {
			return errors.New("wait_event node must configure an event")
		}
	}

	return nil
}
