package transport

import "sync"

// Inbound is the outcome of one Receive call.
type Inbound struct {
	Frame Frame
	Err   error
}

// Pump receives frames from a Conn on its own goroutine so that a
// connection loop can select on them alongside other events.
type Pump struct {
	out  chan Inbound
	stop chan struct{}
	once sync.Once
}

// StartPump begins receiving from conn. The pump delivers one Inbound per
// frame and stops after the first error.
func StartPump(conn Conn) *Pump {
	p := &Pump{
		out:  make(chan Inbound),
		stop: make(chan struct{}),
	}
	go p.run(conn)
	return p
}

func (p *Pump) run(conn Conn) {
	defer close(p.out)
	for {
		frame, err := conn.Receive()
		select {
		case p.out <- Inbound{Frame: frame, Err: err}:
		case <-p.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// C yields received frames. It is closed after an error has been delivered
// or the pump was stopped.
func (p *Pump) C() <-chan Inbound {
	return p.out
}

// Stop abandons the pump. The goroutine exits once its pending Receive
// returns, which closing the Conn guarantees.
func (p *Pump) Stop() {
	p.once.Do(func() {
		close(p.stop)
	})
}
