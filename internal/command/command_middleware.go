package command

import "github.com/bwmarrin/discordgo"

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx interface{}) error
}

func (w *wrappedCommand) Run(ctx interface{}) error {
	return w.wrap(ctx)
}

// SlashDefinition re-exposes the wrapped command's definition so the
// wrapper still counts as a SlashProvider.
func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

func WithGuildOnly(cmd Command) Command {
	return &wrappedCommand{
		Command: cmd,
		wrap: func(ctx interface{}) error {
			if v, ok := ctx.(*SlashContext); ok && v.Event.GuildID == "" {
				return RespondEphemeral(v.Session, v.Event, "You must be in a guild to use this command.")
			}
			return cmd.Run(ctx)
		},
	}
}

// WithAdminCheck gates commands flagged RequireAdmin behind the
// Administrator or Manage Channels permission.
func WithAdminCheck(cmd Command) Command {
	return &wrappedCommand{
		Command: cmd,
		wrap: func(ctx interface{}) error {
			v, ok := ctx.(*SlashContext)
			if !ok || !cmd.RequireAdmin() {
				return cmd.Run(ctx)
			}
			member := v.Event.Member
			if member == nil ||
				member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageChannels) == 0 {
				return RespondEphemeral(v.Session, v.Event, "You need channel management permissions for this command.")
			}
			return cmd.Run(ctx)
		},
	}
}
