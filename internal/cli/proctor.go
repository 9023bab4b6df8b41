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
	"telecare-session-service/internal/history"
	"telecare-session-service/internal/session"

	"github.com/spf13/cobra"
)

// NewProctorCmd runs the driving side of an assessment session.
func NewProctorCmd(configPath *string) *cobra.Command {
	var patient, doctor string
	cmd := &cobra.Command{
		Use:   "proctor <roomId>",
		Short: "Join a room as the proctor and drive a remote assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProctor(cmd.Context(), *configPath, args[0], patient, doctor)
		},
	}
	cmd.Flags().StringVar(&patient, "patient", "patient", "patient display name")
	cmd.Flags().StringVar(&doctor, "doctor", "doctor", "doctor display name")
	return cmd
}

func runProctor(ctx context.Context, configPath, roomID, patient, doctor string) error {
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
	recorder := buildRecorder(pool)

	app := &proctorApp{
		logger:   logger,
		banks:    banks,
		recorder: recorder,
		cfg:      cfg,
		patient:  patient,
		doctor:   doctor,
	}

	sessCfg := session.Config{
		RoomID:     roomID,
		UserName:   doctor,
		Role:       "doctor",
		OpenData:   true,
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
	app.ctrl = ctrl

	logger.Info("proctor session started", "room", roomID, "peer", ctrl.ID())
	app.repl(ctx)

	ctrl.Teardown()
	return nil
}

// proctorApp routes data-channel traffic and stdin commands to whichever
// test machine is active.
type proctorApp struct {
	logger   *slog.Logger
	banks    assessment.BankProvider
	recorder history.Recorder
	cfg      config.Config
	patient  string
	doctor   string
	ctrl     *session.Controller

	mu     sync.Mutex
	ch     session.DataChannel
	single *assessment.Proctor
	door   *assessment.Door
}

func (a *proctorApp) onDataOpen(ch session.DataChannel) {
	a.mu.Lock()
	a.ch = ch
	a.mu.Unlock()
	a.logger.Info("data channel open")
}

func (a *proctorApp) onData(raw string) {
	a.mu.Lock()
	door, single := a.door, a.single
	a.mu.Unlock()
	if door != nil {
		if err := door.HandleMessage(raw); err != nil {
			a.logger.Error("door message", "raw", raw, "err", err)
		}
		return
	}
	if single != nil {
		if err := single.HandleMessage(raw); err != nil {
			a.logger.Error("test message", "raw", raw, "err", err)
		}
	}
}

func (a *proctorApp) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: start <bank> | door | begin | answer <option> | scale <0-3> | next | prev | complete | end | end-room | quit")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		if err := a.handle(ctx, line); err != nil {
			a.logger.Error("command failed", "cmd", line, "err", err)
		}
	}
}

func (a *proctorApp) handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ch == nil {
		return domain.ErrChannelNotOpen
	}

	switch fields[0] {
	case "start":
		if len(fields) != 2 {
			return fmt.Errorf("usage: start <bank>")
		}
		bank, err := a.banks.GetAssessment(ctx, fields[1])
		if err != nil {
			return err
		}
		a.single = assessment.NewProctor(a.ch, a.recorder, assessment.ProctorConfig{
			PatientName: a.patient,
			DoctorName:  a.doctor,
		})
		a.door = nil
		return a.single.Start(bank)
	case "door":
		bank, err := a.banks.GetAssessment(ctx, assessment.DoorTestName)
		if err != nil {
			return err
		}
		if err := a.ch.Send("start-test-door"); err != nil {
			return err
		}
		a.single = nil
		a.door = assessment.NewDoor(assessment.RoleProctor, a.ch, bank, assessment.DoorConfig{
			ShowQuestion: config.TTLDuration(a.cfg.Timed.ShowQuestion, 3*time.Second),
			AnswerWindow: config.TTLDuration(a.cfg.Timed.AnswerWindow, 5*time.Second),
			PatientName:  a.patient,
			DoctorName:   a.doctor,
			OnComplete:   a.recordDoor,
		})
		return nil
	case "begin":
		if a.door == nil {
			return domain.ErrTestNotActive
		}
		return a.door.StartRound()
	case "answer":
		if len(fields) != 2 {
			return fmt.Errorf("usage: answer <option>")
		}
		if a.door != nil {
			return a.door.SelectAnswer(fields[1])
		}
		if a.single != nil {
			return a.single.SelectAnswer(fields[1])
		}
		return domain.ErrTestNotActive
	case "scale":
		if len(fields) != 2 || a.single == nil {
			return domain.ErrTestNotActive
		}
		value, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		return a.single.SelectScale(value)
	case "next":
		if a.single == nil {
			return domain.ErrTestNotActive
		}
		return a.single.Next()
	case "prev":
		if a.single == nil {
			return domain.ErrTestNotActive
		}
		return a.single.Previous()
	case "complete":
		if a.single == nil {
			return domain.ErrTestNotActive
		}
		rec, err := a.single.Complete(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("test complete", "score", rec.Score, "evaluation", rec.Note)
		return nil
	case "end":
		if a.door != nil {
			err := a.ch.Send("end-test-door")
			a.door.Stop()
			a.door = nil
			return err
		}
		if a.single != nil {
			err := a.single.End()
			a.single = nil
			return err
		}
		return domain.ErrTestNotActive
	case "end-room":
		return a.ctrl.EndRoom()
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func (a *proctorApp) recordDoor(rec domain.HistoryRecord, evaluation string) {
	if err := a.recorder.Record(context.Background(), rec); err != nil {
		a.logger.Error("record history", "err", err)
		return
	}
	a.logger.Info("door test complete", "score", rec.Score, "evaluation", evaluation)
}
