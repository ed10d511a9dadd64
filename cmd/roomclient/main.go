package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hireflow-dev/interview-room/internal/domain/entities"
	"github.com/hireflow-dev/interview-room/internal/domain/gateway"
	"github.com/hireflow-dev/interview-room/internal/infrastructure/backend"
	"github.com/hireflow-dev/interview-room/internal/infrastructure/livechannel"
	"github.com/hireflow-dev/interview-room/internal/usecase/roomsession"
	"github.com/hireflow-dev/interview-room/pkg/config"
	"github.com/hireflow-dev/interview-room/pkg/identity"
	pkgvalidator "github.com/hireflow-dev/interview-room/pkg/validator"
)

func main() {
	roomCode := flag.String("room", "", "interview room code")
	flag.Parse()
	if *roomCode == "" {
		log.Fatalf("usage: roomclient -room <code>")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Client.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Resolve the caller from the access token
	caller, err := identity.FromAccessToken(cfg.Auth.AccessToken)
	if err != nil {
		log.Fatalf("Failed to resolve identity: %v", err)
	}

	gw := backend.NewHTTPGateway(cfg.Backend, cfg.Auth.AccessToken, logger)
	channel := livechannel.New(cfg.Live, cfg.Auth.AccessToken, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := roomsession.NewSession(gw, channel, pkgvalidator.New(), logger, roomsession.Callbacks{
		OnTimeline: printLatest,
		OnEnded: func(sig gateway.EndSignal) {
			fmt.Println("--- interview ended ---")
		},
		OnDisconnected: func(err error) {
			fmt.Println("--- live connection lost, messages will no longer update ---")
		},
	})

	if err := session.Enter(ctx, *roomCode, caller.UserID); err != nil {
		log.Fatalf("Failed to enter room: %v", err)
	}
	// Leave the channel on every exit path
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		session.Close(leaveCtx)
	}()

	room := session.Room()
	fmt.Printf("room %s | %s | status %s", room.Code, room.JobTitle, room.Status)
	if session.ReadOnly() {
		fmt.Print(" (read-only)")
	}
	fmt.Println()
	for _, msg := range session.Timeline() {
		printMessage(msg)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "/quit" {
				return
			}
			if err := handleLine(ctx, session, line); err != nil {
				fmt.Printf("! %v\n", err)
			}
		}
	}
}

func handleLine(ctx context.Context, session *roomsession.Session, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return session.SendChat(ctx, line)
	}

	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/questions":
		for _, q := range session.Questions() {
			eval := "-"
			if q.Evaluation != nil {
				eval = string(*q.Evaluation)
			}
			fmt.Printf("[%d] %-7s %-4s %s\n", q.ID, q.Status, eval, q.Text)
		}
		return nil
	case "/ask":
		id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return fmt.Errorf("usage: /ask <question id>")
		}
		return session.SendQuestion(ctx, id)
	case "/adhoc":
		return session.SendAdHocQuestion(ctx, rest)
	case "/pass", "/fail":
		id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return fmt.Errorf("usage: %s <question id>", cmd)
		}
		verdict := entities.VerdictPass
		if cmd == "/fail" {
			verdict = entities.VerdictFail
		}
		return session.EvaluateQuestion(ctx, id, verdict)
	case "/end":
		return session.EndInterview(ctx)
	case "/result":
		return submitResult(ctx, session, rest)
	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

// submitResult parses "/result <score> <PASS|FAIL> <comment...>"
func submitResult(ctx context.Context, session *roomsession.Session, rest string) error {
	parts := strings.SplitN(strings.TrimSpace(rest), " ", 3)
	if len(parts) < 3 {
		return fmt.Errorf("usage: /result <score> <PASS|FAIL> <comment>")
	}
	score, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("score must be a number")
	}
	return session.SubmitEvaluation(ctx, roomsession.EvaluationInput{
		Score:          score,
		Comment:        parts[2],
		Recommendation: entities.Verdict(strings.ToUpper(parts[1])),
	})
}

func printLatest(timeline []entities.Message) {
	if len(timeline) == 0 {
		return
	}
	printMessage(timeline[len(timeline)-1])
}

func printMessage(msg entities.Message) {
	prefix := string(msg.SenderRole)
	if msg.Type == entities.MessageTypeQuestion {
		prefix += " (question)"
	}
	fmt.Printf("%s %-22s %s\n", msg.SentAt.Local().Format("15:04:05"), prefix, msg.Content)
}
