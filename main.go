package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/op/go-logging.v1"

	"pgpchat/config"
	"pgpchat/db"
	"pgpchat/log"
	"pgpchat/server"
)

func main() {
	cfgFile := flag.String("f", "", "Path to the config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(-1)
	}

	logBackend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(-1)
	}
	logger := logBackend.GetLogger("main")

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	registry := server.NewRegistry(database, logBackend)
	social := server.NewSocialGraph(database, registry, logBackend)
	conversations := server.NewConversationStore(database, logBackend)

	srv := server.New(&server.ServerConfig{
		Address:      cfg.Address,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}, database, registry, social, conversations, logBackend)

	go startControlSocket(srv, logger, cfg.ControlSocket)

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Noticef("Received signal %v, shutting down", sig)
		srv.Shutdown()
	}()

	err = srv.Start()
	os.Remove(cfg.ControlSocket)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
}

func startControlSocket(srv *server.Server, logger *logging.Logger, path string) {
	// Remove stale socket file from a previous run
	os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		logger.Errorf("Failed to create control socket: %v", err)
		return
	}
	defer listener.Close()

	logger.Noticef("Control socket listening on %s", path)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}

		go handleControlCommand(srv, conn)
	}
}

func handleControlCommand(srv *server.Server, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "stats":
		conn.Write([]byte("OK|" + srv.GetStats() + "\n"))

	case "shutdown":
		conn.Write([]byte("OK|Shutting down\n"))
		srv.Shutdown()

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
