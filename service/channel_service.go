package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"betbot/models"

	log "github.com/sirupsen/logrus"
)

type channelService struct {
	channels ChannelRepository
	provider MembershipProvider
	guard    *AccessGuard
}

// NewChannelService creates a new channel service
func NewChannelService(channels ChannelRepository, provider MembershipProvider, guard *AccessGuard) ChannelService {
	return &channelService{
		channels: channels,
		provider: provider,
		guard:    guard,
	}
}

// ParseChannel accepts "@name", a t.me link, or "<guildID> <invite link>"
func ParseChannel(input string) (models.Channel, error) {
	input = strings.TrimSpace(input)

	switch {
	case strings.HasPrefix(input, "@"):
		name := strings.TrimPrefix(input, "@")
		if name == "" || strings.ContainsAny(name, " /") {
			return models.Channel{}, fmt.Errorf("%w: invalid channel handle %q", models.ErrInvalidInput, input)
		}
		return models.Channel{Handle: "@" + name, Link: "https://t.me/" + name}, nil

	case strings.Contains(input, "t.me/"):
		rest := input[strings.LastIndex(input, "t.me/")+len("t.me/"):]
		name := strings.SplitN(rest, "/", 2)[0]
		if name == "" {
			return models.Channel{}, fmt.Errorf("%w: invalid channel link %q", models.ErrInvalidInput, input)
		}
		return models.Channel{Handle: "@" + name, Link: "https://t.me/" + name}, nil
	}

	fields := strings.Fields(input)
	if len(fields) == 2 {
		if _, err := strconv.ParseUint(fields[0], 10, 64); err == nil && strings.HasPrefix(fields[1], "https://") {
			return models.Channel{Handle: fields[0], Link: fields[1]}, nil
		}
	}
	return models.Channel{}, fmt.Errorf("%w: send @channel, a t.me link, or a server id followed by an invite link", models.ErrInvalidInput)
}

// Add stores a required channel. The bot's own access is checked but a
// failed check only produces a warning; the channel is kept either way.
func (s *channelService) Add(ctx context.Context, actorID int64, input string) (*AddedChannel, error) {
	if err := s.guard.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	channel, err := ParseChannel(input)
	if err != nil {
		return nil, err
	}

	added := &AddedChannel{Channel: channel}
	if err := s.provider.Verify(ctx, channel); err != nil {
		added.Warning = fmt.Errorf("%w: %v", models.ErrExternalProvider, err)
		log.WithFields(log.Fields{
			"channel": channel.Handle,
			"error":   err,
		}).Warn("Bot cannot verify members of required channel")
	}

	isNew := s.channels.Put(channel)
	log.WithFields(log.Fields{
		"channel": channel.Handle,
		"new":     isNew,
		"actorID": actorID,
	}).Info("Required channel saved")

	return added, nil
}

func (s *channelService) Remove(ctx context.Context, actorID int64, handle string) error {
	if err := s.guard.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if !s.channels.Remove(handle) {
		return fmt.Errorf("%w: channel %s", models.ErrNotFound, handle)
	}

	log.WithFields(log.Fields{
		"channel": handle,
		"actorID": actorID,
	}).Info("Required channel removed")
	return nil
}

func (s *channelService) List(ctx context.Context) []models.Channel {
	return s.channels.List()
}
