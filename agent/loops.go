package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/brensch/kickoff/command"
	"github.com/brensch/kickoff/handler"
	"github.com/brensch/kickoff/transport"
)

// signal sets a capacity-1 flag. A flag that is already set stays set.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// receiveLoop reads datagrams until ctx is cancelled. Any protocol or
// server error ends it and with it the agent.
func (s *session) receiveLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		data, err := s.tr.Recv()
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		s.datagrams.Add(1)

		tags, err := s.handler.HandleRaw(data)
		s.messages.Add(uint64(len(tags)))
		for _, tag := range tags {
			switch tag {
			case handler.TagSenseBody:
				signal(s.flush)
			case handler.TagInit, handler.TagReconnect:
				signal(s.joined)
			case handler.TagServerParam:
				s.queue.SetLimits(command.LimitsFrom(s.model.ServerParams()))
			}
		}
		if err != nil {
			return err
		}
		signal(s.fresh)
	}
	return nil
}

// decideLoop waits for Play, then alternates between flushing commands when
// a cycle ends and thinking when fresh data arrives. A pending flush always
// goes first.
func (s *session) decideLoop(ctx context.Context, policy Policy) error {
	select {
	case <-s.start:
	case <-ctx.Done():
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.flush:
			if err := s.flushCommands(ctx); err != nil {
				return err
			}
		case <-s.fresh:
			select {
			case <-s.flush:
				if err := s.flushCommands(ctx); err != nil {
					return err
				}
			default:
			}
			if err := s.think(policy); err != nil {
				return err
			}
		}
	}
}

func (s *session) flushCommands(ctx context.Context) error {
	n, err := s.queue.Flush(s.tr)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("flush after %d commands: %w", n, err)
	}
	return nil
}

// think runs the policy once. A panicking policy is reported like any other
// policy error.
func (s *session) think(policy Policy) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("policy panic: %v", r)
		}
	}()
	s.thinks.Add(1)
	if err := policy.Think(s.env); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}
