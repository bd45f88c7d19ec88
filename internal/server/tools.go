package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/pkg/kinship"
)

const dateLayout = "2006-01-02"

// percent converts a [0,1] score to a whole percentage.
func percent(score float64) int {
	return int(math.Round(score * 100))
}

// fraction converts an optional percentage argument to [0,1], falling back
// to def when unset.
func fraction(p *int, def float64) (float64, error) {
	if p == nil {
		return def, nil
	}
	if *p < 0 || *p > 100 {
		return 0, fmt.Errorf("%w: score %d is outside 0-100", kinship.ErrInvalidInput, *p)
	}
	return float64(*p) / 100, nil
}

func toProfile(in apptype.ProfileInput) (apptype.Profile, error) {
	p := apptype.Profile{
		ID: in.ID,
		Identity: apptype.IdentityAttributes{
			FirstName:     strings.TrimSpace(in.FirstName),
			LastName:      strings.TrimSpace(in.LastName),
			PlaceOfBirth:  strings.TrimSpace(in.PlaceOfBirth),
			Languages:     in.Languages,
			FamilyMembers: in.FamilyMembers,
		},
		FaceDescriptor:    in.FaceDescriptor,
		VoicePrint:        in.VoicePrint,
		LastKnownLocation: in.LastKnownLocation,
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, in.DateOfBirth)
		if err != nil {
			return p, fmt.Errorf("%w: date of birth %q: %v", kinship.ErrInvalidInput, in.DateOfBirth, err)
		}
		p.Identity.DateOfBirth = &dob
	}
	return p, nil
}

// names resolves display names for ids; profiles that vanished are left out.
func (s *MCPServer) names(ctx context.Context, ids ...int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		p, err := s.svc.GetProfile(ctx, id)
		if errors.Is(err, kinship.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = p.Identity.FullName()
	}
	return out, nil
}

func (s *MCPServer) matchEntries(ctx context.Context, subject int64, conns []apptype.Connection) ([]apptype.MatchEntry, error) {
	ids := make([]int64, len(conns))
	for i, c := range conns {
		ids[i] = c.Counterpart(subject)
	}
	names, err := s.names(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]apptype.MatchEntry, len(conns))
	for i, c := range conns {
		out[i] = apptype.MatchEntry{
			ProfileID:             ids[i],
			Name:                  names[ids[i]],
			SimilarityScore:       percent(c.Result.OverallScore),
			FacialScore:           percent(c.Result.FacialScore),
			VoiceScore:            percent(c.Result.VoiceScore),
			InformationScore:      percent(c.Result.InformationScore),
			Confidence:            c.Result.Confidence,
			ConnectionType:        c.Type,
			PredictedRelationship: c.PredictedRelationship,
		}
	}
	return out, nil
}

func (s *MCPServer) handleRegisterProfile(ctx context.Context, _ *mcp.CallToolRequest, args apptype.RegisterProfileArgs) (*mcp.CallToolResult, apptype.RegisterProfileResult, error) {
	done := metrics.TimeTool("register_profile")
	var success bool
	defer func() { done(success) }()

	p, err := toProfile(args.Profile)
	if err != nil {
		return nil, apptype.RegisterProfileResult{}, err
	}
	saved, err := s.svc.RegisterProfile(ctx, p)
	if err != nil {
		return nil, apptype.RegisterProfileResult{}, fmt.Errorf("failed to register profile: %w", err)
	}
	result := apptype.RegisterProfileResult{ProfileID: saved.ID}
	if args.Match {
		conns, err := s.svc.RunMatching(ctx, saved.ID, kinship.MatchOptions{})
		if err != nil {
			return nil, result, fmt.Errorf("matching failed: %w", err)
		}
		if result.Matches, err = s.matchEntries(ctx, saved.ID, conns); err != nil {
			return nil, result, err
		}
	}
	success = true
	return nil, result, nil
}

func (s *MCPServer) handleCompareProfiles(ctx context.Context, _ *mcp.CallToolRequest, args apptype.CompareProfilesArgs) (*mcp.CallToolResult, apptype.CompareProfilesResult, error) {
	done := metrics.TimeTool("compare_profiles")
	var success bool
	defer func() { done(success) }()

	var res apptype.SimilarityResult
	if args.Store {
		conn, err := s.svc.CompareAndStore(ctx, args.ProfileA, args.ProfileB)
		if err != nil {
			return nil, apptype.CompareProfilesResult{}, fmt.Errorf("compare failed: %w", err)
		}
		res = conn.Result
	} else {
		var err error
		if res, err = s.svc.Compare(ctx, args.ProfileA, args.ProfileB); err != nil {
			return nil, apptype.CompareProfilesResult{}, fmt.Errorf("compare failed: %w", err)
		}
	}
	success = true
	return nil, apptype.CompareProfilesResult{
		ProfileA:         args.ProfileA,
		ProfileB:         args.ProfileB,
		SimilarityScore:  percent(res.OverallScore),
		FacialScore:      percent(res.FacialScore),
		VoiceScore:       percent(res.VoiceScore),
		InformationScore: percent(res.InformationScore),
		Confidence:       res.Confidence,
		Stored:           args.Store,
	}, nil
}

func (s *MCPServer) handleRunMatching(ctx context.Context, _ *mcp.CallToolRequest, args apptype.RunMatchingArgs) (*mcp.CallToolResult, apptype.MatchListResult, error) {
	done := metrics.TimeTool("run_matching")
	var success bool
	defer func() { done(success) }()

	opts := kinship.MatchOptions{Candidates: args.Candidates}
	if args.MinStoreScore != nil {
		minStore, err := fraction(args.MinStoreScore, 0)
		if err != nil {
			return nil, apptype.MatchListResult{}, err
		}
		opts.MinStoreScore = &minStore
	}
	conns, err := s.svc.RunMatching(ctx, args.ProfileID, opts)
	if err != nil {
		return nil, apptype.MatchListResult{}, fmt.Errorf("matching failed: %w", err)
	}
	entries, err := s.matchEntries(ctx, args.ProfileID, conns)
	if err != nil {
		return nil, apptype.MatchListResult{}, err
	}
	success = true
	return nil, apptype.MatchListResult{ProfileID: args.ProfileID, Matches: entries}, nil
}

func (s *MCPServer) handleTopMatches(ctx context.Context, _ *mcp.CallToolRequest, args apptype.TopMatchesArgs) (*mcp.CallToolResult, apptype.MatchListResult, error) {
	done := metrics.TimeTool("top_matches")
	var success bool
	defer func() { done(success) }()

	minScore, err := fraction(args.MinScore, s.defaults.MinScore)
	if err != nil {
		return nil, apptype.MatchListResult{}, err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = s.defaults.MatchLimit
	}
	conns, err := s.svc.TopMatches(ctx, args.ProfileID, minScore, limit)
	if err != nil {
		return nil, apptype.MatchListResult{}, fmt.Errorf("top matches failed: %w", err)
	}
	entries, err := s.matchEntries(ctx, args.ProfileID, conns)
	if err != nil {
		return nil, apptype.MatchListResult{}, err
	}
	success = true
	return nil, apptype.MatchListResult{ProfileID: args.ProfileID, Matches: entries}, nil
}

func (s *MCPServer) handleConnectionGraph(ctx context.Context, _ *mcp.CallToolRequest, args apptype.ConnectionGraphArgs) (*mcp.CallToolResult, apptype.ConnectionGraphResult, error) {
	done := metrics.TimeTool("connection_graph")
	var success bool
	defer func() { done(success) }()

	minScore, err := fraction(args.MinScore, s.defaults.MinScore)
	if err != nil {
		return nil, apptype.ConnectionGraphResult{}, err
	}
	depth := s.defaults.MaxDepth
	if args.MaxDepth != nil {
		depth = *args.MaxDepth
	}
	view, err := s.svc.ConnectionGraph(ctx, args.ProfileID, minScore, depth)
	if err != nil {
		return nil, apptype.ConnectionGraphResult{}, fmt.Errorf("graph expansion failed: %w", err)
	}

	ids := make([]int64, len(view.Nodes))
	for i, n := range view.Nodes {
		ids[i] = n.ID
	}
	names, err := s.names(ctx, ids...)
	if err != nil {
		return nil, apptype.ConnectionGraphResult{}, err
	}
	result := apptype.ConnectionGraphResult{
		Root:  view.Root,
		Nodes: make([]apptype.GraphNodeEntry, len(view.Nodes)),
		Edges: make([]apptype.GraphEdgeEntry, len(view.Edges)),
	}
	for i, n := range view.Nodes {
		result.Nodes[i] = apptype.GraphNodeEntry{ProfileID: n.ID, Name: names[n.ID], Depth: n.Depth}
	}
	for i, e := range view.Edges {
		result.Edges[i] = apptype.GraphEdgeEntry{
			Source:          e.Connection.UserA,
			Target:          e.Connection.UserB,
			SimilarityScore: percent(e.Connection.Result.OverallScore),
			Strength:        e.Connection.Strength(),
			ConnectionType:  e.Connection.Type,
			Depth:           e.Depth,
		}
	}
	success = true
	return nil, result, nil
}

func (s *MCPServer) handleSetConnectionType(ctx context.Context, _ *mcp.CallToolRequest, args apptype.SetConnectionTypeArgs) (*mcp.CallToolResult, apptype.SetConnectionTypeResult, error) {
	done := metrics.TimeTool("set_connection_type")
	var success bool
	defer func() { done(success) }()

	t := apptype.ConnectionType(strings.ToLower(strings.TrimSpace(args.ConnectionType)))
	conn, err := s.svc.SetConnectionType(ctx, args.ProfileA, args.ProfileB, t)
	if err != nil {
		return nil, apptype.SetConnectionTypeResult{}, fmt.Errorf("failed to set connection type: %w", err)
	}
	success = true
	return nil, apptype.SetConnectionTypeResult{
		ProfileA:       conn.UserA,
		ProfileB:       conn.UserB,
		ConnectionType: conn.Type,
	}, nil
}

func (s *MCPServer) handleSearchProfiles(ctx context.Context, _ *mcp.CallToolRequest, args apptype.SearchProfilesArgs) (*mcp.CallToolResult, apptype.SearchProfilesResult, error) {
	done := metrics.TimeTool("search_profiles")
	var success bool
	defer func() { done(success) }()

	offset := args.Offset
	if offset < 0 {
		offset = 0
	}
	profiles, err := s.svc.SearchProfiles(ctx, kinship.SearchQuery{
		Text:      args.Query,
		BirthYear: args.BirthYear,
		Age:       args.Age,
		Limit:     args.Limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, apptype.SearchProfilesResult{}, fmt.Errorf("search failed: %w", err)
	}
	result := apptype.SearchProfilesResult{Profiles: make([]apptype.ProfileSummary, len(profiles))}
	for i, p := range profiles {
		result.Profiles[i] = apptype.ProfileSummary{
			ProfileID:         p.ID,
			Name:              p.Identity.FullName(),
			PlaceOfBirth:      p.Identity.PlaceOfBirth,
			LastKnownLocation: p.LastKnownLocation,
			HasFace:           len(p.FaceDescriptor) > 0,
			HasVoice:          len(p.VoicePrint) > 0,
		}
		if dob := p.Identity.DateOfBirth; dob != nil {
			result.Profiles[i].DateOfBirth = dob.Format(dateLayout)
		}
	}
	success = true
	return nil, result, nil
}

func (s *MCPServer) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ apptype.StatsArgs) (*mcp.CallToolResult, apptype.ConnectionStats, error) {
	done := metrics.TimeTool("stats")
	var success bool
	defer func() { done(success) }()

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, apptype.ConnectionStats{}, fmt.Errorf("stats failed: %w", err)
	}
	success = true
	return nil, stats, nil
}

func (s *MCPServer) handleHealth(ctx context.Context, _ *mcp.CallToolRequest, _ apptype.HealthArgs) (*mcp.CallToolResult, apptype.HealthResult, error) {
	done := metrics.TimeTool("health")
	var success bool
	defer func() { done(success) }()

	inUse, idle := s.svc.PoolStats()
	result := apptype.HealthResult{
		Status:       "ok",
		Version:      buildinfo.Version,
		IndexedFaces: s.svc.IndexedFaces(),
		PoolInUse:    inUse,
		PoolIdle:     idle,
	}
	if err := s.svc.Ping(ctx); err != nil {
		result.Status = "degraded"
		return nil, result, nil
	}
	success = true
	return nil, result, nil
}
