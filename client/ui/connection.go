package ui

import (
	"encoding/json"
	"fmt"
	"time"

	"pgpchat-client/protocol"
)

func (a *App) updateConnectionStatus() {
	if a.connectionView == nil {
		return
	}
	if a.client != nil && a.client.IsConnected() {
		a.mu.RLock()
		id := a.userID
		keyLoaded := a.keyStatus.PublicKeyLoaded
		a.mu.RUnlock()

		keyStr := "[gray]no key[-]"
		if keyLoaded {
			keyStr = "[green]key set[-]"
		}
		pingStr := formatDuration(a.client.LastPongTime())
		a.connectionView.SetText(fmt.Sprintf("[green]● Your ID: %s[-] [gray]│[-] %s [gray]│ Last ping: %s ago[-]", id, keyStr, pingStr))
	} else {
		a.connectionView.SetText(fmt.Sprintf("[red]○ Disconnected from %s[-]", a.serverURL))
	}
}

func (a *App) startStatusTicker() {
	if a.statusTicker != nil {
		return
	}
	a.statusTickerDone = make(chan struct{})
	a.statusTicker = time.NewTicker(1 * time.Second)
	go func() {
		for {
			select {
			case <-a.statusTickerDone:
				return
			case <-a.statusTicker.C:
				if a.client != nil && a.client.IsConnected() {
					a.app.QueueUpdateDraw(func() {
						a.updateConnectionStatus()
						a.updateFriendsList() // Refresh last seen times
					})
				}
			}
		}
	}()
}

func (a *App) stopStatusTicker() {
	if a.statusTicker != nil {
		a.statusTicker.Stop()
		close(a.statusTickerDone)
		a.statusTicker = nil
	}
}

func (a *App) setConnectionError(err string) {
	if a.connectionView == nil {
		return
	}
	a.connectionView.SetText(fmt.Sprintf("[red]✗ Error: %s[-]", err))
}

// flashStatus shows a transient notice in the status bar, then restores
// the key hints.
func (a *App) flashStatus(msg string) {
	if a.statusBar == nil {
		return
	}
	a.statusBar.SetText(fmt.Sprintf("[yellow] %s [-]", msg))
	time.AfterFunc(3*time.Second, func() {
		a.app.QueueUpdateDraw(func() {
			a.updateStatusBarText()
		})
	})
}

func (a *App) updateStatusBarText() {
	if a.statusBar == nil {
		return
	}
	if a.client != nil && a.client.IsConnected() {
		a.statusBar.SetText(" F1:Help | F2:Add Friend | F3:Set Key | F5:Refresh | F6:Disconnect | F10:Quit ")
	} else {
		a.statusBar.SetText(" F1:Help | F6:Connect | F10:Quit ")
	}
}

func (a *App) resetPresence() {
	a.mu.Lock()
	for i := range a.friends {
		a.friends[i].Online = false
	}
	for k := range a.unreadCounts {
		delete(a.unreadCounts, k)
	}
	a.mu.Unlock()
}

func (a *App) toggleConnection() {
	if a.client != nil && a.client.IsConnected() {
		// Disconnect
		a.connectionView.SetText("[yellow]Disconnecting...[-]")
		a.client.Disconnect()
		a.client = nil
		a.resetPresence()
		a.updateConnectionStatus()
		a.updateStatusBarText()
		a.updateFriendsList()
	} else {
		// Reconnect
		a.connectionView.SetText("[yellow]Connecting...[-]")
		go a.reconnect()
	}
}

func (a *App) reconnect() {
	a.client = protocol.NewClient()

	// Every handler must be in place before the dial: the server's first
	// frame is the assigned identifier.
	assigned := make(chan string, 1)
	a.client.OnNotification(protocol.TypeUserIDAssigned, func(data []byte) {
		var n protocol.UserIDAssigned
		if json.Unmarshal(data, &n) == nil {
			select {
			case assigned <- n.UserID:
			default:
			}
		}
	})
	a.setupHandlers()

	if err := a.client.Connect(a.serverURL); err != nil {
		a.app.QueueUpdateDraw(func() {
			a.setConnectionError(fmt.Sprintf("Connection failed: %v", err))
			a.updateStatusBarText()
		})
		return
	}

	select {
	case id := <-assigned:
		a.mu.Lock()
		a.userID = id
		// A reconnect means a fresh identity; the old social state is gone.
		a.friends = nil
		a.messages = make(map[string][]protocol.Message)
		a.keyStatus = protocol.KeyStatus{}
		a.mu.Unlock()

		a.app.QueueUpdateDraw(func() {
			a.updateConnectionStatus()
			a.updateStatusBarText()
			a.updateFriendsTitle()
			a.updateFriendsList()
		})
		a.client.GetFriends()
		a.client.GetKeyStatus()
	case <-time.After(10 * time.Second):
		a.app.QueueUpdateDraw(func() {
			a.setConnectionError("Connection timeout")
			if a.client != nil {
				a.client.Disconnect()
				a.client = nil
			}
			a.updateStatusBarText()
		})
	}
}
