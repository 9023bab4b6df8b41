package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"telecare-session-service/internal/assessment"
	"telecare-session-service/internal/config"
	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/session"

	"github.com/spf13/cobra"
)

// NewRespondCmd runs the following side of an assessment session.
func NewRespondCmd(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "respond <roomId>",
		Short: "Join a room as the responder and follow a remote assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRespond(cmd.Context(), *configPath, args[0], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "patient", "display name")
	return cmd
}

func runRespond(ctx context.Context, configPath, roomID, name string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Info("config not loaded, using defaults", "path", configPath, "err", err)
		cfg = config.Default()
	}

	banks, pool, err := buildBanks(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	app := &respondApp{
		logger: logger,
		banks:  banks,
		cfg:    cfg,
		ctx:    ctx,
	}

	sessCfg := session.Config{
		RoomID:     roomID,
		UserName:   name,
		Role:       "patient",
		OnDataOpen: app.onDataOpen,
		OnData:     app.onData,
	}
	ctrl, client, err := connectSession(cfg, sessCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := ctrl.Run(runCtx); err != nil && err != context.Canceled {
			logger.Error("session ended", "err", err)
		}
	}()

	logger.Info("responder session started", "room", roomID, "peer", ctrl.ID())
	app.repl()

	ctrl.Teardown()
	return nil
}

// respondApp follows the proctor: a single-pass test is mirrored by the
// Responder machine, while a start-test-door command switches to the timed
// door machine.
type respondApp struct {
	logger *slog.Logger
	banks  assessment.BankProvider
	cfg    config.Config
	ctx    context.Context

	mu        sync.Mutex
	ch        session.DataChannel
	responder *assessment.Responder
	door      *assessment.Door
}

func (a *respondApp) onDataOpen(ch session.DataChannel) {
	a.mu.Lock()
	a.ch = ch
	a.responder = assessment.NewResponder(ch, a.banks)
	a.mu.Unlock()
	a.logger.Info("data channel open")
}

func (a *respondApp) onData(raw string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch raw {
	case "start-test-door":
		bank, err := a.banks.GetAssessment(a.ctx, assessment.DoorTestName)
		if err != nil {
			a.logger.Error("load door bank", "err", err)
			return
		}
		a.door = assessment.NewDoor(assessment.RoleResponder, a.ch, bank, assessment.DoorConfig{
			ShowQuestion: config.TTLDuration(a.cfg.Timed.ShowQuestion, 3*time.Second),
			AnswerWindow: config.TTLDuration(a.cfg.Timed.AnswerWindow, 5*time.Second),
		})
		return
	case "end-test-door":
		if a.door != nil {
			a.door.Stop()
			a.door = nil
		}
		return
	}

	if a.door != nil {
		if err := a.door.HandleMessage(raw); err != nil {
			a.logger.Error("door message", "raw", raw, "err", err)
		}
		return
	}
	if a.responder != nil {
		if err := a.responder.HandleMessage(a.ctx, raw); err != nil {
			a.logger.Error("test message", "raw", raw, "err", err)
		}
		if a.responder.State() == assessment.StateComplete {
			a.logger.Info("test complete", "score", a.responder.FinalScore())
		}
	}
}

func (a *respondApp) repl() {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: answer <option> | scale <0-3> | quit")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		if err := a.handle(line); err != nil {
			a.logger.Error("command failed", "cmd", line, "err", err)
		}
	}
}

func (a *respondApp) handle(line string) error {
	fields := strings.Fields(line)
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ch == nil {
		return domain.ErrChannelNotOpen
	}

	switch fields[0] {
	case "answer":
		if len(fields) != 2 {
			return fmt.Errorf("usage: answer <option>")
		}
		if a.door != nil {
			return a.door.SelectAnswer(fields[1])
		}
		if a.responder != nil {
			return a.responder.SelectAnswer(fields[1])
		}
		return domain.ErrTestNotActive
	case "scale":
		if len(fields) != 2 || a.responder == nil {
			return domain.ErrTestNotActive
		}
		value, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		return a.responder.SelectScale(value)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}
