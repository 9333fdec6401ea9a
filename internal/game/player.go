package game

// Player is a registered participant, owned by the State under its unique
// name key.
type Player struct {
	resources    map[Item]int
	actionPoints int
	buildings    map[Building]struct{}
	bankMoney    int
	mailbox      *Mailbox
}

// NewPlayer returns a player with every resource kind present at zero, no
// buildings, no bank money, and a fresh bounded mailbox.
func NewPlayer(actionPoints int) *Player {
	resources := make(map[Item]int, len(Items()))
	for _, item := range Items() {
		resources[item] = 0
	}
	return &Player{
		resources:    resources,
		actionPoints: actionPoints,
		buildings:    make(map[Building]struct{}),
		mailbox:      NewMailbox(MailboxCapacity),
	}
}

// Mailbox returns the player's outbound delivery queue.
func (p *Player) Mailbox() *Mailbox {
	return p.mailbox
}
