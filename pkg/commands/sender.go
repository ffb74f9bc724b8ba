package commands

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// DispatchDelay is the minimum spacing between consecutive chat commands; the
// sim drops messages that arrive faster than a human could type them.
const DispatchDelay = 500 * time.Millisecond

// Sink delivers one chat command to the sim. Implementations live at the
// boundary; failures are reported but never stop the caller.
type Sink interface {
	Send(command string) error
}

// Sender sequences chat commands through a Sink, enforcing the dispatch
// spacing. Failures are logged as warnings and swallowed: the race control
// loop keeps going whether or not a command confirmed delivery.
type Sender struct {
	sink  Sink
	delay time.Duration
	sleep func(time.Duration)
}

func NewSender(sink Sink) *Sender {
	return &Sender{
		sink:  sink,
		delay: DispatchDelay,
		sleep: time.Sleep,
	}
}

// Send dispatches a single command.
func (s *Sender) Send(command string) {
	log.Printf("Sending command: %s", command)
	if err := s.sink.Send(command); err != nil {
		log.Printf("Warning: command %q not delivered: %s", command, err.Error())
	}
}

// SendAll dispatches the commands in order with the configured spacing
// between each pair.
func (s *Sender) SendAll(commands []string) {
	for i, command := range commands {
		if i > 0 {
			s.sleep(s.delay)
		}
		s.Send(command)
	}
}

// YellowFlag builds the chat command that deploys the safety car.
func YellowFlag(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return "!y"
	}
	return fmt.Sprintf("!y %s", message)
}

// WaveAround builds the chat command that waves a car past the safety car.
func WaveAround(carNumber string) string {
	return fmt.Sprintf("!w %s", carNumber)
}

// PaceLaps builds the chat command that announces the remaining pace laps.
func PaceLaps(laps int) string {
	return fmt.Sprintf("!p %d", laps)
}
