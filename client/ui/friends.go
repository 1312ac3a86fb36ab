package ui

import "fmt"

func (a *App) updateFriendsList() {
	if a.friendsList == nil {
		return
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	currentIdx := a.friendsList.GetCurrentItem()
	a.friendsList.Clear()

	for _, friend := range a.friends {
		keyStr := ""
		if friend.PublicKey != nil {
			keyStr = " [cyan](pgp)[-]"
		}

		var mainText string
		unread := a.unreadCounts[friend.UserID]

		if friend.Online {
			if unread > 0 {
				mainText = fmt.Sprintf("[green]●[white] %s%s [red](%d)", friend.UserID, keyStr, unread)
			} else {
				mainText = fmt.Sprintf("[green]●[white] %s%s", friend.UserID, keyStr)
			}
		} else {
			// Format last seen for offline friends
			lastSeenStr := ""
			if formatted := formatLastSeen(friend.LastSeen); formatted != "" {
				lastSeenStr = fmt.Sprintf(" [gray]— %s", formatted)
			}

			if unread > 0 {
				mainText = fmt.Sprintf("[gray]○[white] %s%s%s [red](%d)", friend.UserID, keyStr, lastSeenStr, unread)
			} else {
				mainText = fmt.Sprintf("[gray]○[white] %s%s%s", friend.UserID, keyStr, lastSeenStr)
			}
		}

		a.friendsList.AddItem(mainText, "", 0, nil)
	}

	if currentIdx >= 0 && currentIdx < a.friendsList.GetItemCount() {
		a.friendsList.SetCurrentItem(currentIdx)
	}
}
