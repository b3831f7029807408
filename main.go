package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"horizon/internal/api"
	"horizon/internal/auth"
	"horizon/internal/bank"
	"horizon/internal/config"
	"horizon/internal/conversation"
	"horizon/internal/downloads"
	"horizon/internal/models"
	"horizon/internal/notify"
	"horizon/internal/prefs"
	"horizon/internal/social"
	"horizon/internal/status"
)

func run(ctx context.Context) error {
	baseURL := flag.String("url", "", "Backend base URL (overrides HORIZON_URL)")
	statusURL := flag.String("status-url", "", "Server status API base URL (overrides STATUS_URL)")
	prefsFile := flag.String("prefs", "", "Preferences file (overrides HORIZON_PREFS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *statusURL != "" {
		cfg.StatusURL = *statusURL
	}
	if *prefsFile != "" {
		cfg.PrefsFile = *prefsFile
	}

	store, err := prefs.NewStore(cfg.PrefsFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	themes, err := prefs.NewManager(store, nil)
	if err != nil {
		return err
	}

	client, err := api.New(cfg.BaseURL)
	if err != nil {
		return err
	}

	session := auth.NewSession(client)
	if err := session.Bootstrap(ctx); err != nil {
		return err
	}

	dlStore, err := downloads.NewStore(cfg.DownloadsPath)
	if err != nil {
		return err
	}

	hub := notify.NewHub()
	conv := conversation.New(models.User{})
	poller := conversation.NewPoller(client, conv, cfg.MessagePoll)
	composer := conversation.NewComposer(client, conv, poller, hub, cfg.MaxUploadBytes)
	view := conversation.NewView(ctx, client, conv, hub, dlStore)
	panel := social.NewPanel(client, hub, cfg.FriendsPoll)
	bankSvc := bank.New(client, hub, session.User)
	statusPoller := status.NewPoller(ctx, cfg.StatusURL, cfg.StatusHost, cfg.StatusPoll)

	panel.OnSelect = func(friend models.Friend) {
		poller.SwitchPeer(friend.User)
		blocked, err := panel.BlockedByMe(ctx, friend.ID)
		if err == nil {
			conv.SetBlockedByMe(blocked)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return poller.Run(gCtx) })
	g.Go(func() error { return panel.Run(gCtx) })
	g.Go(func() error { return statusPoller.Run(gCtx) })

	// Print notifications as they arrive
	g.Go(func() error {
		events := hub.Subscribe()
		for {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case ev := <-events:
				fmt.Printf("[%s] %s\n", ev.Level, ev.Text)
			}
		}
	})

	// Command loop
	g.Go(func() error {
		cli := &cli{
			session:  session,
			panel:    panel,
			conv:     conv,
			composer: composer,
			view:     view,
			bank:     bankSvc,
			status:   statusPoller,
			themes:   themes,
		}
		return cli.loop(gCtx)
	})

	// errQuit cancels the group so the pollers stop; it is a clean exit.
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

type cli struct {
	session  *auth.Session
	panel    *social.Panel
	conv     *conversation.Conversation
	composer *conversation.Composer
	view     *conversation.View
	bank     *bank.Service
	status   *status.Poller
	themes   *prefs.Manager

	cursor *conversation.SearchCursor
}

func (c *cli) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("horizon client, 'help' for commands")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := c.dispatch(ctx, strings.TrimSpace(line)); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				fmt.Println("error:", err)
			}
		}
	}
}

var errQuit = errors.New("quit")

func (c *cli) dispatch(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Print(helpText)
		return nil
	case "login":
		email, password, ok := strings.Cut(rest, " ")
		if !ok {
			return errors.New("usage: login <email> <password>")
		}
		return c.session.Login(ctx, email, password)
	case "register":
		parts := strings.Fields(rest)
		if len(parts) != 3 {
			return errors.New("usage: register <email> <password> <username>")
		}
		return c.session.Register(ctx, parts[0], parts[1], parts[2])
	case "logout":
		return c.session.Logout(ctx)
	case "me":
		user := c.session.User()
		if user == nil {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s (%s) linked: %s\n", user.Username, user.ID, strings.Join(user.SocialAccounts, ", "))
		return nil
	case "link":
		if rest == "" {
			return errors.New("usage: link <provider>")
		}
		fmt.Println("open in browser:", c.session.ProviderLoginURL(rest, true, "/"))
		return nil
	case "friends":
		return c.printFriends()
	case "requests":
		return c.printRequests()
	case "find":
		users, err := c.panel.SearchUsers(ctx, rest)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Printf("  %s (%s)\n", u.Username, u.ID)
		}
		return nil
	case "add":
		return c.panel.SendRequest(ctx, rest)
	case "accept":
		return c.panel.Accept(ctx, rest)
	case "reject":
		return c.panel.Reject(ctx, rest)
	case "cancel":
		return c.panel.Cancel(ctx, rest)
	case "open":
		return c.open(rest)
	case "list":
		return c.printMessages()
	case "send":
		c.composer.SetDraft(rest)
		return c.composer.Send(ctx)
	case "attach":
		return c.attach(rest)
	case "reply":
		msg, err := c.messageAt(rest)
		if err != nil {
			return err
		}
		c.composer.SetReply(msg)
		return nil
	case "delete":
		msg, err := c.messageAt(rest)
		if err != nil {
			return err
		}
		return c.view.Delete(ctx, msg, c.panel.Self().ID)
	case "copy":
		msg, err := c.messageAt(rest)
		if err != nil {
			return err
		}
		fmt.Println(c.view.Copy(msg))
		return nil
	case "forward":
		return c.forward(ctx, rest)
	case "download":
		return c.download(ctx, rest)
	case "search":
		c.cursor = conversation.NewSearchCursor(c.conv.Messages(), rest)
		fmt.Printf("%d matches\n", c.cursor.Count())
		return nil
	case "next", "prev":
		return c.step(cmd)
	case "block":
		return c.blockPeer(ctx, true)
	case "unblock":
		return c.blockPeer(ctx, false)
	case "mute":
		return c.panel.Mute(ctx, c.conv.Peer().ID)
	case "unmute":
		return c.panel.Unmute(ctx, c.conv.Peer().ID)
	case "clear":
		return c.panel.ClearChat(ctx, c.conv.Peer().ID)
	case "unfriend":
		return c.panel.RemoveFriend(ctx, c.conv.Peer().ID)
	case "settings":
		s := c.panel.Settings()
		fmt.Printf("hide online: %v, allow requests: %v\n", s.IsOnlineHidden, s.AllowFriendRequests)
		return nil
	case "hide-online":
		return c.panel.SetOnlineHidden(ctx, rest == "on")
	case "allow-requests":
		return c.panel.SetAllowFriendRequests(ctx, rest == "on")
	case "balance":
		balance, err := c.bank.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Println("balance:", balance.Balance)
		return nil
	case "history":
		return c.printHistory(ctx)
	case "transfer":
		return c.transfer(ctx, rest)
	case "status":
		return c.printStatus()
	case "theme":
		if rest == "" {
			fmt.Printf("theme: %s (effective %s)\n", c.themes.Theme(), c.themes.Effective())
			return nil
		}
		return c.themes.SetTheme(prefs.Theme(rest))
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (c *cli) printFriends() error {
	for _, f := range c.panel.Friends() {
		state := "offline"
		if f.IsOnline {
			state = "online"
		}
		extra := ""
		if f.UnreadCount > 0 {
			extra = fmt.Sprintf(" [%d]", f.UnreadCount)
		}
		fmt.Printf("  %s (%s) %s%s\n", f.Username, f.ID, state, extra)
	}
	return nil
}

func (c *cli) printRequests() error {
	fmt.Println("received:")
	for _, r := range c.panel.Received() {
		fmt.Printf("  %s from %s\n", r.ID, r.FromUser.Username)
	}
	fmt.Println("sent:")
	for _, r := range c.panel.Sent() {
		fmt.Printf("  %s to %s\n", r.ID, r.ToUser.Username)
	}
	return nil
}

func (c *cli) open(username string) error {
	for _, f := range c.panel.Friends() {
		if f.Username == username || f.ID == username {
			c.panel.Select(f)
			fmt.Println("opened conversation with", f.Username)
			return nil
		}
	}
	return models.ErrNotFound
}

func (c *cli) printMessages() error {
	messages := c.conv.Messages()
	labels := conversation.DayLabels(messages, time.Now())
	for i, m := range messages {
		if labels[i] != "" {
			fmt.Println("---", labels[i], "---")
		}
		prefix := ""
		if m.ForwardedFrom != nil {
			prefix = fmt.Sprintf("(переслано от %s) ", m.ForwardedFrom.Username)
		}
		if m.ReplyTo != nil {
			fmt.Printf("      > %s: %s\n", m.ReplyTo.Sender.Username, m.ReplyTo.Content)
		}
		fmt.Printf("%3d %s %s: %s%s\n", i, m.Timestamp.Local().Format("15:04"), m.Sender.Username, prefix, m.Content)
		for k, att := range m.Attachments {
			fmt.Printf("      [%d] %s\n", k, att.File)
		}
	}
	return nil
}

func (c *cli) messageAt(arg string) (models.Message, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return models.Message{}, errors.New("expected a message index")
	}
	messages := c.conv.Messages()
	if i < 0 || i >= len(messages) {
		return models.Message{}, errors.New("message index out of range")
	}
	return messages[i], nil
}

func (c *cli) attach(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.composer.Stage([]api.Upload{{Name: path, Data: data}})
	return nil
}

func (c *cli) forward(ctx context.Context, rest string) error {
	parts := strings.Fields(rest)
	if len(parts) < 2 {
		return errors.New("usage: forward <index> <username>...")
	}
	msg, err := c.messageAt(parts[0])
	if err != nil {
		return err
	}
	var ids []string
	for _, name := range parts[1:] {
		found := false
		for _, f := range c.panel.Friends() {
			if f.Username == name {
				ids = append(ids, f.ID)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no friend named %q", name)
		}
	}
	return c.view.Forward(ctx, msg, ids)
}

func (c *cli) download(ctx context.Context, rest string) error {
	parts := strings.Fields(rest)
	if len(parts) != 2 {
		return errors.New("usage: download <message index> <attachment index>")
	}
	msg, err := c.messageAt(parts[0])
	if err != nil {
		return err
	}
	k, err := strconv.Atoi(parts[1])
	if err != nil || k < 0 || k >= len(msg.Attachments) {
		return errors.New("attachment index out of range")
	}
	_, err = c.view.Download(ctx, msg.Attachments[k])
	return err
}

func (c *cli) step(direction string) error {
	if c.cursor == nil {
		return errors.New("no active search")
	}
	var id string
	if direction == "next" {
		id = c.cursor.Next()
	} else {
		id = c.cursor.Prev()
	}
	if id == "" {
		fmt.Println("no matches")
		return nil
	}
	fmt.Println("match:", id)
	return nil
}

func (c *cli) blockPeer(ctx context.Context, block bool) error {
	peerID := c.conv.Peer().ID
	if peerID == "" {
		return errors.New("no open conversation")
	}
	var err error
	if block {
		err = c.panel.Block(ctx, peerID)
	} else {
		err = c.panel.Unblock(ctx, peerID)
	}
	if err == nil {
		c.conv.SetBlockedByMe(block)
	}
	return err
}

func (c *cli) printHistory(ctx context.Context) error {
	history, err := c.bank.Transactions(ctx)
	if err != nil {
		return err
	}
	for _, t := range history {
		fmt.Printf("  %s %s -> %s: %d\n", t.Timestamp.Local().Format("02.01 15:04"), t.FromUsername, t.ToUsername, t.Amount)
	}
	return nil
}

func (c *cli) transfer(ctx context.Context, rest string) error {
	name, amountStr, ok := strings.Cut(rest, " ")
	if !ok {
		return errors.New("usage: transfer <username> <amount>")
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(amountStr), 10, 64)
	if err != nil {
		return bank.ErrInvalidAmount
	}
	return c.bank.Transfer(ctx, name, amount)
}

func (c *cli) printStatus() error {
	snap, ok := c.status.Current()
	if !ok {
		fmt.Println("status not fetched yet")
		return nil
	}
	state := "offline"
	if snap.Online {
		state = fmt.Sprintf("online, %d/%d players, %s", snap.Players.Online, snap.Players.Max, snap.Version)
	}
	if snap.Stale {
		state += " (stale)"
	}
	fmt.Println("server:", state)
	return nil
}

const helpText = `commands:
  login <email> <password>      register <email> <password> <username>
  logout                        me / link <provider>
  friends / requests            find <query> / add <user id>
  accept|reject|cancel <req id> open <username>
  list / send <text>            attach <path> / reply <n>
  delete <n> / copy <n>         forward <n> <username>...
  download <n> <k>              search <query> / next / prev
  block / unblock / mute / unmute / clear / unfriend
  settings / hide-online on|off / allow-requests on|off
  balance / history / transfer <username> <amount>
  status / theme [system|light|dark]
  quit
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
