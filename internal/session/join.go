package session

import (
	"context"
	"fmt"
)

// beginJoin starts a join sequence for target. At most one sequence runs at
// a time; the automatic join after login and an operator switch share the
// connecting guard.
func (s *Supervisor) beginJoin(target string, manual bool) error {
	if s.connecting {
		return ErrAlreadyConnecting
	}
	if s.client == nil || !s.status.IsOnline() {
		return ErrNotConnected
	}
	stopTimer(&s.postJoin)

	s.joinSeq++
	s.joinTarget = target
	s.joinManual = manual
	s.joinAttempts = 0
	s.mu.Lock()
	s.connecting = true
	s.joinErrors = 0
	s.status = JoiningSubServer
	s.subServer = Offline
	s.mu.Unlock()

	s.attemptJoin()
	return nil
}

func (s *Supervisor) attemptJoin() {
	s.joinAttempts++
	seq, gen, client, target := s.joinSeq, s.gen, s.client, s.joinTarget
	policy := s.settings.Policy

	s.log.Info("Connecting to CityBuild %s (attempt %d/%d)...", target, s.joinAttempts, policy.SubServerConnectLimit)
	s.joinCancel = firstToSettle(s.ctx, s.clock, policy.SubServerConnectTimeout,
		func(ctx context.Context) error {
			return client.JoinSubServer(ctx, target)
		},
		func(err error) {
			go s.post(gen, joinResult{seq: seq, err: err})
		})
}

func (s *Supervisor) onJoinResult(ev joinResult) {
	if ev.seq != s.joinSeq || !s.connecting {
		return
	}
	s.joinCancel = nil
	outcome := ClassifyJoinError(ev.err)
	s.observer.JoinAttempt(outcome)
	target := s.joinTarget

	switch outcome {
	case JoinSuccess:
		s.mu.Lock()
		s.connecting = false
		s.joinErrors = 0
		s.status = SubServerJoined
		s.subServer = target
		s.mu.Unlock()
		s.log.Info("Connected to CityBuild %s.", target)
		s.schedulePostJoin()

	case JoinNamedError:
		// retrying cannot fix an unknown name; wait for the operator
		s.endJoin()
		s.log.Error("%v", ev.err)

	default:
		s.mu.Lock()
		s.joinErrors++
		n := s.joinErrors
		s.mu.Unlock()
		limit := s.settings.Policy.SubServerConnectLimit
		if n < limit {
			s.log.Error("Couldn't connect to CityBuild: %v", ev.err)
			s.attemptJoin()
			return
		}
		s.endJoin()
		s.log.Error("Couldn't connect to CityBuild %d times: %v", limit, ev.err)
		if !s.joinManual {
			s.exit(fmt.Errorf("%w %s after %d attempts", ErrSubServerGivenUp, target, limit))
		}
	}
}

func (s *Supervisor) endJoin() {
	s.mu.Lock()
	s.connecting = false
	s.joinErrors = 0
	s.status = Online
	s.subServer = Offline
	s.mu.Unlock()
}

func (s *Supervisor) schedulePostJoin() {
	cmds := append([]string(nil), s.settings.PostJoinCommands...)
	if len(cmds) == 0 {
		return
	}
	gen := s.gen
	s.postJoin = s.clock.AfterFunc(s.settings.PostJoinDelay, func() {
		s.post(gen, postJoinDue{commands: cmds})
	})
}

// sendCommands fires the post-join commands in order without waiting for
// acknowledgements.
func (s *Supervisor) sendCommands(cmds []string) {
	s.postJoin = nil
	for _, cmd := range cmds {
		if err := s.client.SendCommand(cmd); err != nil {
			s.log.Error("Couldn't send command %q: %v", cmd, err)
		}
	}
}
