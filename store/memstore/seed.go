package memstore

import (
	"context"
	"fmt"

	"tripchat/models"
)

// Demo user ids referenced by the canned fixtures. The auth collaborator is
// expected to issue tokens with matching ids when running against demo mode.
const (
	DemoOrganizer = uint(1001)
	DemoCrewLead  = uint(1002)
	DemoCrewTwo   = uint(1003)
	DemoSecurity  = uint(1004)
	DemoGuest     = uint(1005)
)

// Seed loads the canned demo trip so the API is explorable without a live
// backend: one trip, three roles, a main channel plus two role-gated ones,
// and a short message history with read markers.
func Seed(m *Memstore) (*models.Trip, error) {
	ctx := context.Background()

	trip := &models.Trip{Name: "Baja Overland 2026", CreatorID: DemoOrganizer}
	m.CreateTrip(trip)

	type seedRole struct {
		name, desc string
	}
	roleIDs := make(map[string]uint)
	for _, r := range []seedRole{
		{"Crew", "Day-to-day trip crew"},
		{"Security", "Overnight watch and vehicle security"},
		{"Kitchen", "Meal planning and camp kitchen"},
	} {
		role := &models.Role{TripID: trip.ID, Name: r.name, Description: r.desc, CreatedBy: DemoOrganizer}
		if err := m.CreateRole(ctx, role); err != nil {
			return nil, fmt.Errorf("seed role %s: %w", r.name, err)
		}
		roleIDs[r.name] = role.ID
	}

	assignments := map[uint]string{
		DemoCrewLead: "Crew",
		DemoCrewTwo:  "Crew",
		DemoSecurity: "Security",
	}
	for userID, roleName := range assignments {
		a := &models.RoleAssignment{TripID: trip.ID, UserID: userID, RoleID: roleIDs[roleName], AssignedBy: DemoOrganizer}
		if err := m.CreateAssignment(ctx, a); err != nil {
			return nil, fmt.Errorf("seed assignment: %w", err)
		}
	}

	if err := m.UpsertAdminGrant(ctx, &models.AdminGrant{
		TripID:      trip.ID,
		UserID:      DemoCrewLead,
		ManageRoles: true, ManageChannels: true,
		GrantedBy: DemoOrganizer,
	}); err != nil {
		return nil, fmt.Errorf("seed admin grant: %w", err)
	}

	main := &models.Channel{
		TripID: trip.ID, Name: "General", Slug: "general",
		Description: "Whole-trip chatter", Kind: models.ChannelKindMain,
		CreatedBy: DemoOrganizer,
	}
	if err := m.CreateChannel(ctx, main, nil); err != nil {
		return nil, fmt.Errorf("seed main channel: %w", err)
	}

	crewOps := &models.Channel{
		TripID: trip.ID, Name: "Crew Ops", Slug: "crew-ops",
		Description: "Logistics for the crew", Kind: models.ChannelKindRole,
		IsPrivate: true, CreatedBy: DemoOrganizer,
	}
	if err := m.CreateChannel(ctx, crewOps, []uint{roleIDs["Crew"]}); err != nil {
		return nil, fmt.Errorf("seed crew channel: %w", err)
	}

	nightWatch := &models.Channel{
		TripID: trip.ID, Name: "Night Watch", Slug: "night-watch",
		Description: "Security rotation", Kind: models.ChannelKindRole,
		IsPrivate: true, CreatedBy: DemoOrganizer,
	}
	if err := m.CreateChannel(ctx, nightWatch, []uint{roleIDs["Security"], roleIDs["Crew"]}); err != nil {
		return nil, fmt.Errorf("seed security channel: %w", err)
	}

	type seedMsg struct {
		channel  *models.Channel
		sender   uint
		name     string
		content  string
	}
	history := []seedMsg{
		{main, DemoOrganizer, "Dana", "Welcome aboard! Itinerary is pinned on the trip page."},
		{main, DemoCrewLead, "Marty", "Fuel stop list is done, sharing in crew ops."},
		{crewOps, DemoCrewLead, "Marty", "Fuel stops: Ensenada, San Quintín, Guerrero Negro."},
		{crewOps, DemoCrewTwo, "Ira", "Adding a spare jerrycan to rig two."},
		{nightWatch, DemoSecurity, "Noa", "First watch split 22:00-02:00 / 02:00-06:00."},
	}
	for _, sm := range history {
		msg := &models.Message{
			ChannelID:  sm.channel.ID,
			SenderID:   sm.sender,
			SenderName: sm.name,
			Content:    sm.content,
			Type:       models.MessageTypeText,
		}
		if err := m.AppendMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("seed message: %w", err)
		}
		// Organizer has read everything posted so far.
		if err := m.AdvanceReadMarker(ctx, sm.channel.ID, DemoOrganizer, msg.Seq); err != nil {
			return nil, fmt.Errorf("seed read marker: %w", err)
		}
	}

	return trip, nil
}
