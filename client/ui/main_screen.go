package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func (a *App) updateFriendsTitle() {
	if a.friendsList == nil {
		return
	}
	a.mu.RLock()
	id := a.userID
	a.mu.RUnlock()
	if id == "" {
		a.friendsList.SetTitle(" Friends ")
	} else {
		a.friendsList.SetTitle(fmt.Sprintf(" Friends [%s] ", id))
	}
}

func (a *App) createMainPage() tview.Primitive {
	// Friends list on the left
	a.friendsList = tview.NewList()
	a.friendsList.SetBorder(true)
	a.friendsList.SetBorderColor(ColorBorder)
	a.friendsList.SetBackgroundColor(ColorBg)
	a.friendsList.SetTitle(" Friends ")
	a.friendsList.SetTitleColor(ColorTitle)
	a.friendsList.SetMainTextColor(ColorFg)
	a.friendsList.SetMainTextStyle(tcell.StyleDefault.Foreground(ColorFg).Background(ColorBg))
	a.friendsList.SetSelectedTextColor(ColorTitle)
	a.friendsList.SetSelectedBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	a.friendsList.SetHighlightFullLine(true)
	a.friendsList.ShowSecondaryText(false)

	a.friendsList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		// Check connection first
		if a.client == nil || !a.client.IsConnected() {
			a.setConnectionError("Not connected. Press F6 to connect.")
			return
		}
		a.mu.RLock()
		if index < len(a.friends) {
			friend := a.friends[index]
			a.mu.RUnlock()
			a.openChat(friend.UserID)
		} else {
			a.mu.RUnlock()
		}
	})

	// Connection status view
	a.connectionView = tview.NewTextView()
	a.connectionView.SetBorder(true)
	a.connectionView.SetBorderColor(ColorBorder)
	a.connectionView.SetBackgroundColor(ColorBg)
	a.connectionView.SetTitle(" Connection ")
	a.connectionView.SetTitleColor(ColorTitle)
	a.connectionView.SetTextColor(ColorFg)
	a.connectionView.SetDynamicColors(true)
	a.connectionView.SetTextAlign(tview.AlignCenter)
	a.updateConnectionStatus()

	// Status bar at bottom
	a.statusBar = tview.NewTextView()
	a.statusBar.SetBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	a.statusBar.SetTextColor(ColorTitle)
	a.statusBar.SetDynamicColors(true)
	a.statusBar.SetTextAlign(tview.AlignCenter)
	a.updateStatusBarText()

	// Main layout
	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.friendsList, 0, 1, true).
		AddItem(a.connectionView, 3, 0, false).
		AddItem(a.statusBar, 1, 0, false)
	mainFlex.SetBackgroundColor(ColorBg)

	// Handle keyboard
	mainFlex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			a.showHelp()
			return nil
		case tcell.KeyF2:
			a.showAddFriendDialog()
			return nil
		case tcell.KeyF3:
			a.showSetKeyDialog()
			return nil
		case tcell.KeyF5:
			if a.client != nil && a.client.IsConnected() {
				a.client.GetFriends()
				a.client.GetKeyStatus()
			}
			return nil
		case tcell.KeyF6:
			a.toggleConnection()
			return nil
		case tcell.KeyF10:
			a.quit()
			return nil
		case tcell.KeyEsc:
			a.quit()
			return nil
		}
		return event
	})

	return mainFlex
}
