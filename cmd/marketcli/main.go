// Command marketcli is a terminal front end for the marketplace client SDK.
// It signs in against the backend, keeps the realtime channel open and lets
// the demo accounts drive the trabajo lifecycle and chat from two shells.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/adapters/secondary/realtime"
	"github.com/oficios-app/marketplace-client/internal/adapters/secondary/rest"
	"github.com/oficios-app/marketplace-client/internal/auth"
	"github.com/oficios-app/marketplace-client/internal/config"
	"github.com/oficios-app/marketplace-client/internal/core/domain"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
	"github.com/oficios-app/marketplace-client/internal/core/services"
	"github.com/oficios-app/marketplace-client/internal/infrastructure/logging"
)

type app struct {
	session   *auth.SessionStore
	api       *rest.Client
	transport ports.Transport
	jobs      *services.JobLifecycleController
	chats     *services.ConversationStore
	logger    *slog.Logger
}

func main() {
	email := flag.String("email", "cliente@demo.local", "account email")
	password := flag.String("password", "demo-password", "account password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "marketcli",
		Environment: cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, *email, *password)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.transport.Disconnect()

	if err := a.repl(ctx); err != nil {
		logger.Error("session ended with error", "error", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, email, password string) (*app, error) {
	session := auth.NewSessionStore()
	api := rest.NewClient(cfg.API.BaseURL, &http.Client{Timeout: 15 * time.Second}, session, logger)

	login, err := api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := session.SetToken(login.Token); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	fmt.Printf("signed in as %s (%s)\n", login.User.Nombre, login.User.Role)

	transport := realtime.NewTransport(cfg.Realtime.URL, session, logger, realtime.Options{
		TypingPerSecond: cfg.Realtime.TypingPerSecond,
		TypingBurst:     cfg.Realtime.TypingBurst,
	})

	bridge := services.NewNotificationBridge(transport, session, logger)
	jobs := services.NewJobLifecycleController(api, session, bridge, logger)
	chats := services.NewConversationStore(api, session, logger)

	a := &app{
		session:   session,
		api:       api,
		transport: transport,
		jobs:      jobs,
		chats:     chats,
		logger:    logger,
	}

	// Pushed frames flow into the stores; a second subscriber prints them so
	// the other shell's activity is visible live.
	for _, t := range []domain.EventType{domain.EventTrabajoCreated, domain.EventTrabajoStateChanged} {
		transport.Subscribe(t, jobs.HandleFrame)
		transport.Subscribe(t, a.printFrame)
	}
	for _, t := range []domain.EventType{domain.EventMessageReceived, domain.EventMessagesRead} {
		transport.Subscribe(t, chats.HandleFrame)
	}
	transport.Subscribe(domain.EventMessageReceived, a.printFrame)
	transport.Subscribe(domain.EventTypingIndicator, a.printFrame)

	if err := transport.Connect(ctx); err != nil {
		return nil, fmt.Errorf("realtime connect: %w", err)
	}

	if err := jobs.Load(ctx); err != nil {
		return nil, fmt.Errorf("load trabajos: %w", err)
	}
	if err := chats.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	return a, nil
}

func (a *app) printFrame(frame domain.Frame) {
	fmt.Printf("\n<< %s %s\n> ", frame.Type, string(frame.Payload))
}

const replHelp = `commands:
  trabajos                       list mirrored trabajos
  crear <servicio> <direccion> <tecnicoId> [descripcion]
  aceptar | rechazar | cancelar <trabajoId>
  reportar <trabajoId> <motivo> <descripcion>
  chats                          list conversations
  abrir <tecnicoId>              start/open a conversation
  foco <chatId>                  focus a conversation and load history
  enviar <chatId> <texto>
  typing <chatId>
  salir`

func (a *app) repl(ctx context.Context) error {
	fmt.Println(replHelp)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "salir" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := a.dispatch(ctx, strings.Fields(line)); err != nil {
				fmt.Println("error:", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		fmt.Println(replHelp)
		return nil

	case "trabajos":
		for _, t := range a.jobs.List() {
			precio := "-"
			if t.Precio != nil {
				precio = fmt.Sprintf("%.2f", *t.Precio)
			}
			fmt.Printf("%s  %-16s precio=%s disputa=%v %s\n", t.ID, t.Estado, precio, t.EnDisputa, t.ServicioNombre)
		}
		return nil

	case "crear":
		if len(args) < 4 {
			return fmt.Errorf("usage: crear <servicio> <direccion> <tecnicoId> [descripcion]")
		}
		tecnicoID, err := uuid.Parse(args[3])
		if err != nil {
			return err
		}
		params := ports.CreateTrabajoParams{
			ServicioNombre: args[1],
			Direccion:      args[2],
			TecnicoID:      tecnicoID,
			Descripcion:    strings.Join(args[4:], " "),
		}
		t, err := a.jobs.CreateJob(ctx, params)
		if err != nil {
			return err
		}
		fmt.Println("created", t.ID)
		return nil

	case "aceptar", "rechazar", "cancelar":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <trabajoId>", args[0])
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		switch args[0] {
		case "aceptar":
			_, err = a.jobs.AcceptQuote(ctx, id)
		case "rechazar":
			_, err = a.jobs.RejectQuote(ctx, id)
		case "cancelar":
			_, err = a.jobs.CancelJob(ctx, id)
		}
		return err

	case "reportar":
		if len(args) < 4 {
			return fmt.Errorf("usage: reportar <trabajoId> <motivo> <descripcion>")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		_, err = a.jobs.ReportJob(ctx, ports.ReportTrabajoParams{
			TrabajoID:   id,
			Motivo:      args[2],
			Descripcion: strings.Join(args[3:], " "),
		})
		return err

	case "chats":
		for _, c := range a.chats.Conversations() {
			last := "-"
			if c.UltimoMensajeAt != nil {
				last = c.UltimoMensajeAt.Format(time.RFC3339)
			}
			fmt.Printf("%s  %s  %q\n", c.ID, last, c.UltimoMensaje)
		}
		return nil

	case "abrir":
		if len(args) != 2 {
			return fmt.Errorf("usage: abrir <tecnicoId>")
		}
		tecnicoID, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		conv, err := a.chats.StartConversation(ctx, tecnicoID)
		if err != nil {
			return err
		}
		fmt.Println("conversation", conv.ID)
		return nil

	case "foco":
		if len(args) != 2 {
			return fmt.Errorf("usage: foco <chatId>")
		}
		chatID, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		a.chats.Focus(chatID)
		a.transport.JoinRoom(chatID)
		if err := a.chats.LoadMessages(ctx, chatID, 1, 50); err != nil {
			return err
		}
		for _, m := range a.chats.Messages(chatID) {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.RemitenteID, m.Texto)
		}
		return nil

	case "enviar":
		if len(args) < 3 {
			return fmt.Errorf("usage: enviar <chatId> <texto>")
		}
		chatID, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		_, err = a.chats.SendMessage(ctx, chatID, strings.Join(args[2:], " "))
		return err

	case "typing":
		if len(args) != 2 {
			return fmt.Errorf("usage: typing <chatId>")
		}
		chatID, err := uuid.Parse(args[1])
		if err != nil {
			return err
		}
		return a.transport.SendTyping(chatID)

	default:
		return fmt.Errorf("unknown command %q (try help)", args[0])
	}
}
