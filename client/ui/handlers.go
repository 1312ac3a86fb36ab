package ui

import (
	"encoding/json"
	"fmt"

	"pgpchat-client/protocol"
)

func (a *App) setupHandlers() {
	// Incoming friend requests pop a modal
	a.client.OnNotification(protocol.TypeFriendRequestReceived, func(data []byte) {
		var n protocol.FriendRequestReceived
		if json.Unmarshal(data, &n) != nil {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.showFriendRequestDialog(n.SenderID)
		})
	})

	// A request was resolved in our favor, on either side
	a.client.OnNotification(protocol.TypeFriendAdded, func(data []byte) {
		var n protocol.FriendAdded
		if json.Unmarshal(data, &n) != nil {
			return
		}
		a.client.GetFriends()
		a.app.QueueUpdateDraw(func() {
			a.flashStatus(fmt.Sprintf("%s is now your friend", n.FriendID))
		})
	})

	a.client.OnNotification(protocol.TypeFriendRequestRejected, func(data []byte) {
		var n protocol.FriendRequestRejected
		if json.Unmarshal(data, &n) != nil {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.flashStatus(fmt.Sprintf("%s declined your friend request", n.UserID))
		})
	})

	// Relayed messages: both our own echoes and the peer's
	a.client.OnNotification(protocol.TypeMessageReceived, func(data []byte) {
		var n protocol.Message
		if json.Unmarshal(data, &n) != nil {
			return
		}

		a.mu.Lock()
		peer := n.SenderID
		ours := n.SenderID == a.userID
		if ours {
			peer = n.TargetID
		}
		a.messages[peer] = append(a.messages[peer], n)
		// Increment unread count for peer messages outside the open chat
		if !ours && a.currentChat != peer {
			a.unreadCounts[peer]++
		}
		currentChat := a.currentChat
		a.mu.Unlock()

		a.app.QueueUpdateDraw(func() {
			if currentChat == peer && a.chatView != nil {
				a.refreshChatView()
			}
			a.updateFriendsList()
		})
	})

	// Friends listing, with presence and keys
	a.client.OnNotification(protocol.TypeFriendsList, func(data []byte) {
		var n protocol.FriendsList
		if json.Unmarshal(data, &n) != nil {
			return
		}
		a.mu.Lock()
		a.friends = n.Friends
		a.mu.Unlock()
		a.app.QueueUpdateDraw(func() {
			a.updateFriendsList()
			a.updateChatTitle()
		})
	})

	// Conversation log fetches replace the local copy wholesale
	a.client.OnNotification(protocol.TypeConversationMessages, func(data []byte) {
		var n protocol.ConversationMessages
		if json.Unmarshal(data, &n) != nil {
			return
		}
		a.mu.Lock()
		a.messages[n.TargetID] = n.Messages
		currentChat := a.currentChat
		a.mu.Unlock()
		if currentChat == n.TargetID {
			a.app.QueueUpdateDraw(func() {
				a.refreshChatView()
			})
		}
	})

	// All three key frames carry the same status body
	for _, typ := range []string{protocol.TypeKeyStatus, protocol.TypePublicKeySet, protocol.TypeKeyStatusUpdated} {
		a.client.OnNotification(typ, func(data []byte) {
			var n protocol.KeyStatusNotice
			if json.Unmarshal(data, &n) != nil {
				return
			}
			a.mu.Lock()
			a.keyStatus = n.KeyStatus
			a.mu.Unlock()
			a.app.QueueUpdateDraw(func() {
				a.updateConnectionStatus()
			})
		})
	}

	// Request errors show up in the status bar
	a.client.OnNotification(protocol.TypeError, func(data []byte) {
		var n protocol.ErrorNotification
		if json.Unmarshal(data, &n) != nil {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.flashStatus(n.Message)
		})
	})

	// Link dropped
	a.client.OnNotification(protocol.TypeDisconnected, func(data []byte) {
		a.client = nil
		a.resetPresence()
		a.app.QueueUpdateDraw(func() {
			a.updateConnectionStatus()
			a.updateStatusBarText()
			a.updateFriendsList()
			if a.connectionView != nil {
				a.connectionView.SetText("[red]○ Connection lost[-] [gray]│ Press F6 to reconnect[-]")
			}
		})
	})
}
