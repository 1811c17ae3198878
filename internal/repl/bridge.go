package repl

import "time"

// pollInterval re-arms scheduler polling even when nothing wakes the
// loop, covering work that attaches to the host from outside the console
// without a reliable wakeup.
const pollInterval = 100 * time.Millisecond

type lineReader interface {
	Readline(prompt string) (string, error)
}

type lineResult struct {
	line string
	err  error
}

// readLineAndPoll reads one line while keeping the host scheduler moving
// and answering editor helper queries. The blocking read runs on its own
// goroutine so it can never stall the loop; the loop races the read
// against scheduler progress and a periodic tick.
func readLineAndPoll(session *Session, helper *EditorHelper, editor lineReader, prompt string) (string, error) {
	lineCh := make(chan lineResult, 1)
	go func() {
		line, err := editor.Readline(prompt)
		lineCh <- lineResult{line: line, err: err}
	}()

	pollWorker := true
	tick := time.NewTimer(pollInterval)
	defer tick.Stop()

	for {
		// answer pending helper queries before anything else so a blocked
		// completion call never waits on the poll tick
	drain:
		for {
			select {
			case q := <-helper.queries:
				answerQuery(session, q)
			default:
				break drain
			}
		}

		if pollWorker {
			drainScheduler(session.sched)
			// stop spin-polling until something re-arms it
			pollWorker = false
		}

		select {
		case r := <-lineCh:
			return r.line, r.err
		case q := <-helper.queries:
			answerQuery(session, q)
		case <-tick.C:
			pollWorker = true
			tick.Reset(pollInterval)
		}
	}
}

// answerQuery performs the protocol call on behalf of the editor side;
// postMessage advances the scheduler along with it so neither starves.
func answerQuery(session *Session, q *helperQuery) {
	result, err := session.postMessage(q.method, q.params)
	q.resp <- helperReply{result: result, err: err}
}
