package discord

import (
	"context"
	"errors"
	"net/http"

	"harmonia/internal/rooms"

	"github.com/bwmarrin/discordgo"
)

// Permissions granted to a temporary room's owner over their channel.
const roomOwnerPermissions = discordgo.PermissionManageChannels |
	discordgo.PermissionVoiceMoveMembers |
	discordgo.PermissionVoiceMuteMembers |
	discordgo.PermissionVoiceDeafenMembers

// guildPlatform implements rooms.Platform over the Discord REST API and
// gateway state.
type guildPlatform struct {
	dg *discordgo.Session
}

var _ rooms.Platform = (*guildPlatform)(nil)

func (p *guildPlatform) CreateVoiceChannel(ctx context.Context, guildID, name string) (string, error) {
	ch, err := p.dg.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildVoice,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (p *guildPlatform) DeleteChannel(ctx context.Context, guildID, channelID string) error {
	_, err := p.dg.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

func (p *guildPlatform) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return p.dg.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx))
}

func (p *guildPlatform) GrantRoomOwner(ctx context.Context, guildID, channelID, userID string) error {
	return p.dg.ChannelPermissionSet(channelID, userID,
		discordgo.PermissionOverwriteTypeMember, roomOwnerPermissions, 0,
		discordgo.WithContext(ctx))
}

func (p *guildPlatform) ChannelExists(ctx context.Context, guildID, channelID string) (bool, error) {
	_, err := p.dg.Channel(channelID, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

func (p *guildPlatform) ChannelOccupants(ctx context.Context, guildID, channelID string) ([]string, error) {
	guild, err := p.dg.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			out = append(out, vs.UserID)
		}
	}
	return out, nil
}
