// Package ui provides the Fyne-based GUI for the Dardasha client.
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/phvlvck/dardasha/pkg/client"
	"github.com/phvlvck/dardasha/pkg/model"
	"github.com/phvlvck/dardasha/pkg/render"
	"github.com/phvlvck/dardasha/pkg/version"
)

// maxBubbles caps the message pane so a long-running session does not grow
// without bound.
const maxBubbles = 500

// App is the main GUI application.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	engine  *client.Engine

	// Entry view
	loginUsername    *widget.Entry
	loginPassword    *widget.Entry
	registerUsername *widget.Entry
	registerEmail    *widget.Entry
	registerPassword *widget.Entry

	// Chat view
	conversationList *widget.List
	headerName       *widget.Label
	headerStatus     *widget.Label
	messageBox       *fyne.Container
	messageScroll    *container.Scroll
	chatEntry        *widget.Entry

	// State, touched only on the UI thread.
	items []render.ListItem

	entryView fyne.CanvasObject
	chatView  fyne.CanvasObject
}

// NewApp creates the GUI around an already constructed engine.
func NewApp(engine *client.Engine) *App {
	a := &App{
		fyneApp: app.NewWithID("io.dardasha.client"),
		engine:  engine,
	}
	a.window = a.fyneApp.NewWindow("Dardasha")
	a.window.Resize(fyne.NewSize(900, 600))
	a.window.SetMaster()
	return a
}

// Run starts the GUI application (blocks). A stored session skips the entry
// view and connects immediately.
func (a *App) Run() {
	a.buildEntryView()
	a.buildChatView()
	a.bindEvents()

	if a.engine.Session().Token != "" {
		a.showChat()
		go a.engine.Connect()
	} else {
		a.showEntry()
	}

	a.window.ShowAndRun()
}

func (a *App) showEntry() {
	a.window.SetContent(a.entryView)
}

func (a *App) showChat() {
	a.window.SetContent(a.chatView)
}

func (a *App) buildEntryView() {
	a.loginUsername = widget.NewEntry()
	a.loginUsername.SetPlaceHolder("Username")
	a.loginPassword = widget.NewPasswordEntry()
	a.loginPassword.SetPlaceHolder("Password")

	doLogin := func() {
		username := a.loginUsername.Text
		password := a.loginPassword.Text
		go a.engine.Login(username, password)
	}
	a.loginPassword.OnSubmitted = func(string) { doLogin() }
	loginBtn := widget.NewButtonWithIcon("Sign In", theme.LoginIcon(), doLogin)
	loginBtn.Importance = widget.HighImportance

	loginTab := container.NewVBox(
		a.loginUsername,
		a.loginPassword,
		loginBtn,
	)

	a.registerUsername = widget.NewEntry()
	a.registerUsername.SetPlaceHolder("Username")
	a.registerEmail = widget.NewEntry()
	a.registerEmail.SetPlaceHolder("Email")
	a.registerPassword = widget.NewPasswordEntry()
	a.registerPassword.SetPlaceHolder("Password (6+ characters)")

	registerBtn := widget.NewButtonWithIcon("Create Account", theme.AccountIcon(), func() {
		username := a.registerUsername.Text
		email := a.registerEmail.Text
		password := a.registerPassword.Text
		go a.engine.Register(username, email, password)
	})

	registerTab := container.NewVBox(
		a.registerUsername,
		a.registerEmail,
		a.registerPassword,
		registerBtn,
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Sign In", loginTab),
		container.NewTabItem("Register", registerTab),
	)

	title := widget.NewLabelWithStyle("Dardasha", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	versionLabel := widget.NewLabel(version.String())
	versionLabel.TextStyle = fyne.TextStyle{Italic: true}
	versionLabel.Importance = widget.LowImportance

	form := container.NewVBox(title, tabs)
	a.entryView = container.NewBorder(
		nil,
		container.NewHBox(layout.NewSpacer(), versionLabel),
		nil, nil,
		container.NewCenter(container.New(layout.NewGridWrapLayout(fyne.NewSize(340, 300)), form)),
	)
}

func (a *App) buildChatView() {
	// --- Conversation list (sidebar) ---
	a.conversationList = widget.NewList(
		func() int { return len(a.items) },
		func() fyne.CanvasObject {
			online := widget.NewLabel("●")
			online.Importance = widget.SuccessImportance
			title := widget.NewLabel("Username placeholder")
			title.TextStyle = fyne.TextStyle{Bold: true}
			subtitle := widget.NewLabel("Bio placeholder")
			subtitle.Importance = widget.LowImportance
			return container.NewHBox(online, container.NewVBox(title, subtitle))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			a.updateListItem(id, obj)
		},
	)
	a.conversationList.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= len(a.items) {
			return
		}
		userID := a.items[id].UserID
		go a.engine.OpenConversation(userID)
	}

	logoutBtn := widget.NewButtonWithIcon("Sign Out", theme.LogoutIcon(), func() {
		go a.engine.Logout()
	})

	sidebar := container.NewBorder(
		widget.NewLabelWithStyle("Chats", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		logoutBtn,
		nil, nil,
		a.conversationList,
	)

	// --- Conversation header ---
	a.headerName = widget.NewLabel("")
	a.headerName.TextStyle = fyne.TextStyle{Bold: true}
	a.headerStatus = widget.NewLabel("Select a conversation")
	a.headerStatus.TextStyle = fyne.TextStyle{Italic: true}
	header := container.NewVBox(a.headerName, a.headerStatus)

	// --- Message pane ---
	a.messageBox = container.NewVBox()
	a.messageScroll = container.NewVScroll(a.messageBox)

	a.chatEntry = widget.NewEntry()
	a.chatEntry.SetPlaceHolder("Type a message... (Enter to send)")
	a.chatEntry.OnSubmitted = func(text string) {
		if a.engine.SendMessage(text) {
			a.chatEntry.SetText("")
		}
	}

	chatPanel := container.NewBorder(header, a.chatEntry, nil, nil, a.messageScroll)

	mainArea := container.NewHSplit(sidebar, chatPanel)
	mainArea.SetOffset(0.3)
	a.chatView = mainArea
}

func (a *App) updateListItem(id widget.ListItemID, obj fyne.CanvasObject) {
	if id >= len(a.items) {
		return
	}
	item := a.items[id]

	box := obj.(*fyne.Container)
	online := box.Objects[0].(*widget.Label)
	text := box.Objects[1].(*fyne.Container)
	title := text.Objects[0].(*widget.Label)
	subtitle := text.Objects[1].(*widget.Label)

	if item.Online {
		online.Show()
	} else {
		online.Hide()
	}
	title.SetText(item.Title)
	subtitle.SetText(item.Subtitle)
}

// bubbleObject lays out one message: sent messages hug the right edge,
// received ones the left.
func bubbleObject(b render.Bubble) fyne.CanvasObject {
	body := widget.NewLabel(b.Body)
	body.Wrapping = fyne.TextWrapWord

	meta := b.Time
	if b.ReadReceipt {
		meta += " ✓✓"
	}
	metaLabel := widget.NewLabel(meta)
	metaLabel.Importance = widget.LowImportance

	if b.Sent {
		return container.NewHBox(layout.NewSpacer(), container.NewVBox(body, metaLabel))
	}
	return container.NewHBox(container.NewVBox(body, metaLabel), layout.NewSpacer())
}

func (a *App) appendBubble(b render.Bubble) {
	a.messageBox.Add(bubbleObject(b))
	if len(a.messageBox.Objects) > maxBubbles {
		a.messageBox.Objects = a.messageBox.Objects[len(a.messageBox.Objects)-maxBubbles:]
		a.messageBox.Refresh()
	}
	a.messageScroll.ScrollToBottom()
}

func (a *App) bindEvents() {
	a.engine.OnAuthenticated = func(model.Session) {
		fyne.Do(func() {
			a.loginPassword.SetText("")
			a.registerPassword.SetText("")
			a.showChat()
		})
		go a.engine.Connect()
	}

	a.engine.OnSessionEnded = func() {
		fyne.Do(func() {
			a.items = nil
			a.conversationList.Refresh()
			a.messageBox.Objects = nil
			a.messageBox.Refresh()
			a.headerName.SetText("")
			a.headerStatus.SetText("Select a conversation")
			a.showEntry()
		})
	}

	a.engine.OnConversations = func(items []render.ListItem) {
		fyne.Do(func() {
			a.items = items
			a.conversationList.Refresh()
		})
	}

	a.engine.OnHeader = func(h render.Header) {
		fyne.Do(func() {
			a.headerName.SetText(h.Title)
			a.headerStatus.SetText(h.Status)
		})
	}

	a.engine.OnHistory = func(bubbles []render.Bubble) {
		fyne.Do(func() {
			a.messageBox.Objects = nil
			for _, b := range bubbles {
				a.messageBox.Add(bubbleObject(b))
			}
			a.messageBox.Refresh()
			a.messageScroll.ScrollToBottom()
		})
	}

	a.engine.OnMessage = func(b render.Bubble) {
		fyne.Do(func() {
			a.appendBubble(b)
		})
	}

	a.engine.OnPresence = func(userID int64, online bool) {
		fyne.Do(func() {
			for i := range a.items {
				if a.items[i].UserID == userID {
					a.items[i].Online = online
					a.conversationList.RefreshItem(i)
					return
				}
			}
		})
	}

	a.engine.OnNotify = func(title, body string) {
		a.fyneApp.SendNotification(fyne.NewNotification(title, body))
	}

	a.engine.OnNotice = func(text string) {
		fyne.Do(func() {
			dialog.ShowInformation("Dardasha", text, a.window)
		})
	}

	a.engine.OnInputFocus = func() {
		fyne.Do(func() {
			a.window.Canvas().Focus(a.chatEntry)
		})
	}
}
