package ui

import (
	"sync"
	"time"

	"pgpchat-client/protocol"

	"github.com/rivo/tview"
)

// App is the main application
type App struct {
	app              *tview.Application
	pages            *tview.Pages
	client           *protocol.Client
	serverURL        string
	userID           string // identifier assigned by the server on connect
	keyStatus        protocol.KeyStatus
	friends          []protocol.Friend
	unreadCounts     map[string]int // unread message count per friend
	messages         map[string][]protocol.Message
	currentChat      string
	mu               sync.RWMutex
	friendsList      *tview.List
	chatView         *tview.TextView
	messageInput     *tview.InputField
	statusBar        *tview.TextView
	connectionView   *tview.TextView
	statusTicker     *time.Ticker
	statusTickerDone chan struct{}
}

// NewApp creates a new application instance
func NewApp(serverURL string) *App {
	return &App{
		serverURL:    serverURL,
		unreadCounts: make(map[string]int),
		messages:     make(map[string][]protocol.Message),
	}
}

// Run starts the application
func (a *App) Run() error {
	a.app = tview.NewApplication()
	a.pages = tview.NewPages()

	mainPage := a.createMainPage()
	a.pages.AddPage("main", mainPage, true, true)

	a.startStatusTicker()
	a.updateStatusBarText()

	// There is no login step; the server hands out an identity with the
	// connection, so dial as soon as the UI is up.
	a.connectionView.SetText("[yellow]Connecting...[-]")
	go a.reconnect()

	return a.app.SetRoot(a.pages, true).EnableMouse(false).Run()
}

// quit exits the application
func (a *App) quit() {
	if a.client != nil && a.client.IsConnected() {
		a.client.Disconnect()
	}
	a.app.Stop()
}
