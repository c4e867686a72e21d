// Package probe implements the edge-chasing probe messages of the
// Chandy-Misra-Haas deadlock detection algorithm and the per-process
// mailbox they travel through.
//
// A probe walks the wait-for graph one edge at a time: a blocked process
// sends it to the process holding the resource it waits on, which in turn
// forwards it to its own blockers. If the probe ever reaches the process
// that initiated the round, the graph contains a cycle and the system is
// deadlocked.
package probe

import "fmt"

// Message is the probe record exchanged between processes. Initiator is
// the process that started the detection round and is preserved across
// every hop; Sender and Receiver describe the current hop only.
type Message struct {
	Initiator int `json:"initiator"`
	Sender    int `json:"sender"`
	Receiver  int `json:"receiver"`
}

// Forward returns the message for the next hop. The initiator is carried
// over unchanged.
func (m Message) Forward(sender, receiver int) Message {
	return Message{Initiator: m.Initiator, Sender: sender, Receiver: receiver}
}

func (m Message) String() string {
	return fmt.Sprintf("probe(initiator=%d sender=%d receiver=%d)", m.Initiator, m.Sender, m.Receiver)
}
