package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pgpchat-client/protocol"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func (a *App) showAddFriendDialog() {
	if a.client == nil || !a.client.IsConnected() {
		a.flashStatus("Not connected")
		return
	}

	form := tview.NewForm()
	form.SetBackgroundColor(ColorBg)
	form.SetFieldBackgroundColor(tcell.NewRGBColor(0, 0, 64))
	form.SetFieldTextColor(ColorFg)
	form.SetLabelColor(ColorHighlight)
	form.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	form.SetButtonTextColor(ColorTitle)
	form.SetBorder(true)
	form.SetBorderColor(ColorBorder)
	form.SetTitle(" Add Friend ")
	form.SetTitleColor(ColorTitle)

	var idField *tview.InputField
	var statusLabel *tview.TextView

	statusLabel = tview.NewTextView()
	statusLabel.SetBackgroundColor(ColorBg)
	statusLabel.SetTextColor(tcell.ColorRed)

	idField = tview.NewInputField()
	idField.SetLabel("Friend ID: ")
	idField.SetFieldWidth(12)

	form.AddFormItem(idField)

	form.AddButton("Send Request", func() {
		id := strings.TrimSpace(idField.GetText())
		if id == "" {
			statusLabel.SetText("Friend ID is required")
			return
		}

		done := make(chan bool, 1)
		var errMsg string

		a.client.OnNotification(protocol.TypeFriendRequestSent, func(data []byte) {
			select {
			case done <- true:
			default:
			}
		})

		a.client.OnNotification(protocol.TypeError, func(data []byte) {
			var n protocol.ErrorNotification
			if json.Unmarshal(data, &n) == nil {
				errMsg = n.Message
			} else {
				errMsg = "Failed to send friend request"
			}
			select {
			case done <- false:
			default:
			}
		})

		a.client.SendFriendRequest(id)

		go func() {
			select {
			case success := <-done:
				a.app.QueueUpdateDraw(func() {
					if success {
						a.pages.RemovePage("dialog")
						a.app.SetFocus(a.friendsList)
						a.flashStatus(fmt.Sprintf("Friend request sent to %s", strings.ToUpper(id)))
					} else {
						statusLabel.SetText(errMsg)
					}
				})
			case <-time.After(5 * time.Second):
				a.app.QueueUpdateDraw(func() {
					statusLabel.SetText("Timeout")
				})
			}
		}()
	})

	form.AddButton("Cancel", func() {
		a.pages.RemovePage("dialog")
		a.app.SetFocus(a.friendsList)
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(form, 50, 0, true).
			AddItem(nil, 0, 1, false), 8, 0, true).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(statusLabel, 50, 0, false).
			AddItem(nil, 0, 1, false), 1, 0, false).
		AddItem(nil, 0, 1, false)
	flex.SetBackgroundColor(ColorBg)

	a.pages.AddPage("dialog", flex, true, true)
	a.app.SetFocus(form)
}

// showFriendRequestDialog prompts for a response to an incoming request.
// Ignore leaves the request pending on the server.
func (a *App) showFriendRequestDialog(senderID string) {
	modal := tview.NewModal()
	modal.SetText(fmt.Sprintf("%s wants to add you as a friend", senderID))
	modal.SetBackgroundColor(ColorBg)
	modal.SetTextColor(ColorFg)
	modal.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	modal.SetButtonTextColor(ColorTitle)
	modal.AddButtons([]string{"Accept", "Reject", "Ignore"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		switch buttonLabel {
		case "Accept":
			a.client.RespondFriendRequest(senderID, true)
		case "Reject":
			a.client.RespondFriendRequest(senderID, false)
		}
		a.pages.RemovePage("friendreq")
		a.app.SetFocus(a.friendsList)
	})

	a.pages.AddPage("friendreq", modal, true, true)
}

// showSetKeyDialog uploads an armored public key. The key is multi-line,
// so this is a text area rather than a form field.
func (a *App) showSetKeyDialog() {
	if a.client == nil || !a.client.IsConnected() {
		a.flashStatus("Not connected")
		return
	}

	textArea := tview.NewTextArea()
	textArea.SetPlaceholder("Paste your armored PGP public key here...")
	textArea.SetTextStyle(tcell.StyleDefault.Foreground(ColorFg).Background(tcell.NewRGBColor(0, 0, 64)))
	textArea.SetBackgroundColor(tcell.NewRGBColor(0, 0, 64))
	textArea.SetBorder(true)
	textArea.SetBorderColor(ColorBorder)
	textArea.SetTitle(" Public Key ")
	textArea.SetTitleColor(ColorTitle)

	statusLabel := tview.NewTextView()
	statusLabel.SetBackgroundColor(ColorBg)
	statusLabel.SetTextColor(tcell.ColorRed)

	bar := tview.NewTextView()
	bar.SetBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	bar.SetTextColor(ColorTitle)
	bar.SetTextAlign(tview.AlignCenter)
	bar.SetText(" Ctrl+S:Upload | Esc:Cancel ")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
				AddItem(textArea, 0, 1, true).
				AddItem(statusLabel, 1, 0, false).
				AddItem(bar, 1, 0, false), 72, 0, true).
			AddItem(nil, 0, 1, false), 16, 0, true).
		AddItem(nil, 0, 1, false)
	flex.SetBackgroundColor(ColorBg)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			a.pages.RemovePage("dialog")
			a.app.SetFocus(a.friendsList)
			return nil
		case tcell.KeyCtrlS:
			key := strings.TrimSpace(textArea.GetText())
			if key == "" {
				statusLabel.SetText("Key is required")
				return nil
			}

			done := make(chan bool, 1)
			var errMsg string

			a.client.OnNotification(protocol.TypePublicKeySet, func(data []byte) {
				select {
				case done <- true:
				default:
				}
			})

			a.client.OnNotification(protocol.TypeError, func(data []byte) {
				var n protocol.ErrorNotification
				if json.Unmarshal(data, &n) == nil {
					errMsg = n.Message
				} else {
					errMsg = "Failed to upload key"
				}
				select {
				case done <- false:
				default:
				}
			})

			a.client.SetPublicKey(key)

			go func() {
				select {
				case success := <-done:
					a.app.QueueUpdateDraw(func() {
						if success {
							a.pages.RemovePage("dialog")
							a.app.SetFocus(a.friendsList)
							a.flashStatus("Public key uploaded")
						} else {
							statusLabel.SetText(errMsg)
						}
					})
				case <-time.After(5 * time.Second):
					a.app.QueueUpdateDraw(func() {
						statusLabel.SetText("Timeout")
					})
				}
			}()
			return nil
		}
		return event
	})

	a.pages.AddPage("dialog", flex, true, true)
	a.app.SetFocus(textArea)
}
