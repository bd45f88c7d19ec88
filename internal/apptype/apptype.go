package apptype

import (
	"strings"
	"time"
)

// FeatureVector is a fixed-length numeric descriptor (face descriptor or voice print).
type FeatureVector []float64

// FamilyMember is a self-reported relative of a registered person.
type FamilyMember struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
}

// IdentityAttributes holds the structured personal data used in information scoring.
// Every field is optional.
type IdentityAttributes struct {
	FirstName     string         `json:"firstName,omitempty"`
	LastName      string         `json:"lastName,omitempty"`
	PlaceOfBirth  string         `json:"placeOfBirth,omitempty"`
	DateOfBirth   *time.Time     `json:"dateOfBirth,omitempty"`
	Languages     []string       `json:"languages,omitempty"`
	FamilyMembers []FamilyMember `json:"familyMembers,omitempty"`
}

// FullName joins first and last name.
func (a IdentityAttributes) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Profile represents a registered person with their comparable features.
type Profile struct {
	ID                int64              `json:"id"`
	Identity          IdentityAttributes `json:"identity"`
	FaceDescriptor    FeatureVector      `json:"faceDescriptor,omitempty"`
	VoicePrint        FeatureVector      `json:"voicePrint,omitempty"`
	LastKnownLocation string             `json:"lastKnownLocation,omitempty"`
	RegisteredAt      time.Time          `json:"registeredAt,omitempty"`
}

// ConfidenceTier is a coarse confidence bucket for a similarity result.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// SimilarityResult is the outcome of comparing two profiles. Scores are in [0,1].
type SimilarityResult struct {
	FacialScore      float64        `json:"facialScore"`
	VoiceScore       float64        `json:"voiceScore"`
	InformationScore float64        `json:"informationScore"`
	OverallScore     float64        `json:"overallScore"`
	Confidence       ConfidenceTier `json:"confidence"`
	ComputedAt       time.Time      `json:"computedAt"`
}

// ConnectionType is the human-assigned review state of a connection.
type ConnectionType string

const (
	ConnectionPotential ConnectionType = "potential"
	ConnectionVerified  ConnectionType = "verified"
	ConnectionRejected  ConnectionType = "rejected"
)

// Valid reports whether t is one of the known connection types.
func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionPotential, ConnectionVerified, ConnectionRejected:
		return true
	}
	return false
}

// Connection is the stored edge for an unordered pair of profiles.
// UserA is always the smaller identifier.
type Connection struct {
	UserA                 int64            `json:"userA"`
	UserB                 int64            `json:"userB"`
	Result                SimilarityResult `json:"result"`
	Type                  ConnectionType   `json:"connectionType"`
	PredictedRelationship string           `json:"predictedRelationship,omitempty"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// Counterpart returns the endpoint that is not id.
func (c Connection) Counterpart(id int64) int64 {
	if c.UserA == id {
		return c.UserB
	}
	return c.UserA
}

// Touches reports whether id is one of the endpoints.
func (c Connection) Touches(id int64) bool {
	return c.UserA == id || c.UserB == id
}

// Strength buckets the overall score the way graph consumers label links.
func (c Connection) Strength() string {
	switch s := c.Result.OverallScore; {
	case s >= 0.8:
		return "strong"
	case s >= 0.6:
		return "medium"
	default:
		return "weak"
	}
}

// GraphNode is a node reached during expansion with its shortest-hop depth.
type GraphNode struct {
	ID    int64 `json:"id"`
	Depth int   `json:"depth"`
}

// GraphEdge is a connection surfaced by expansion, annotated with the depth
// at which it was first discovered.
type GraphEdge struct {
	Connection Connection `json:"connection"`
	Depth      int        `json:"depth"`
}

// GraphView is the node/edge set around a root profile.
type GraphView struct {
	Root  int64       `json:"root"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// ConnectionStats summarizes the stored connections.
type ConnectionStats struct {
	TotalConnections      int                    `json:"totalConnections"`
	HighConfidenceMatches int                    `json:"highConfidenceMatches"`
	ByType                map[ConnectionType]int `json:"byType"`
}
