package apptype

// MCP tool arguments and results. Scores crossing the tool boundary are
// whole percentages (0-100); the engine itself works on [0,1].

// ProfileInput is the registration payload for register_profile.
type ProfileInput struct {
	ID                int64          `json:"id,omitempty" jsonschema:"Existing profile id to replace; omit to register a new profile"`
	FirstName         string         `json:"firstName,omitempty"`
	LastName          string         `json:"lastName,omitempty"`
	PlaceOfBirth      string         `json:"placeOfBirth,omitempty"`
	DateOfBirth       string         `json:"dateOfBirth,omitempty" jsonschema:"Date of birth as YYYY-MM-DD"`
	Languages         []string       `json:"languages,omitempty"`
	FamilyMembers     []FamilyMember `json:"familyMembers,omitempty"`
	FaceDescriptor    []float64      `json:"faceDescriptor,omitempty" jsonschema:"Face descriptor produced by the face extractor"`
	VoicePrint        []float64      `json:"voicePrint,omitempty" jsonschema:"Voice print produced by the voice extractor"`
	LastKnownLocation string         `json:"lastKnownLocation,omitempty"`
}

type RegisterProfileArgs struct {
	Profile ProfileInput `json:"profile" jsonschema:"The person to register"`
	// Match runs matching right after registration.
	Match bool `json:"match,omitempty" jsonschema:"Run matching for the profile after registering it"`
}

type RegisterProfileResult struct {
	ProfileID int64        `json:"profileId"`
	Matches   []MatchEntry `json:"matches,omitempty"`
}

// MatchEntry is one counterpart of a profile in percent form.
type MatchEntry struct {
	ProfileID             int64          `json:"profileId"`
	Name                  string         `json:"name,omitempty"`
	SimilarityScore       int            `json:"similarityScore"`
	FacialScore           int            `json:"facialScore"`
	VoiceScore            int            `json:"voiceScore"`
	InformationScore      int            `json:"informationScore"`
	Confidence            ConfidenceTier `json:"confidence"`
	ConnectionType        ConnectionType `json:"connectionType"`
	PredictedRelationship string         `json:"predictedRelationship,omitempty"`
}

type CompareProfilesArgs struct {
	ProfileA int64 `json:"profileA" jsonschema:"First profile id"`
	ProfileB int64 `json:"profileB" jsonschema:"Second profile id"`
	Store    bool  `json:"store,omitempty" jsonschema:"Store the result as a connection"`
}

type CompareProfilesResult struct {
	ProfileA         int64          `json:"profileA"`
	ProfileB         int64          `json:"profileB"`
	SimilarityScore  int            `json:"similarityScore"`
	FacialScore      int            `json:"facialScore"`
	VoiceScore       int            `json:"voiceScore"`
	InformationScore int            `json:"informationScore"`
	Confidence       ConfidenceTier `json:"confidence"`
	Stored           bool           `json:"stored"`
}

type RunMatchingArgs struct {
	ProfileID     int64 `json:"profileId" jsonschema:"Profile to match against the registry"`
	Candidates    int   `json:"candidates,omitempty" jsonschema:"Maximum ANN candidates to compare"`
	MinStoreScore *int  `json:"minStoreScore,omitempty" jsonschema:"Minimum similarity (0-100) a result needs to be stored (default from configuration)"`
}

type MatchListResult struct {
	ProfileID int64        `json:"profileId"`
	Matches   []MatchEntry `json:"matches"`
}

type TopMatchesArgs struct {
	ProfileID int64 `json:"profileId" jsonschema:"Profile whose matches to list"`
	MinScore  *int  `json:"minScore,omitempty" jsonschema:"Minimum similarity 0-100 (default 50)"`
	Limit     int   `json:"limit,omitempty" jsonschema:"Maximum matches to return (default 20)"`
}

type ConnectionGraphArgs struct {
	ProfileID int64 `json:"profileId" jsonschema:"Root profile of the graph"`
	MinScore  *int  `json:"minScore,omitempty" jsonschema:"Minimum similarity 0-100 an edge needs (default 50)"`
	MaxDepth  *int  `json:"maxDepth,omitempty" jsonschema:"Maximum hops from the root (default 3)"`
}

type GraphNodeEntry struct {
	ProfileID int64  `json:"profileId"`
	Name      string `json:"name,omitempty"`
	Depth     int    `json:"depth"`
}

type GraphEdgeEntry struct {
	Source          int64          `json:"source"`
	Target          int64          `json:"target"`
	SimilarityScore int            `json:"similarityScore"`
	Strength        string         `json:"strength"`
	ConnectionType  ConnectionType `json:"connectionType"`
	Depth           int            `json:"depth"`
}

type ConnectionGraphResult struct {
	Root  int64            `json:"root"`
	Nodes []GraphNodeEntry `json:"nodes"`
	Edges []GraphEdgeEntry `json:"edges"`
}

type SetConnectionTypeArgs struct {
	ProfileA       int64  `json:"profileA"`
	ProfileB       int64  `json:"profileB"`
	ConnectionType string `json:"connectionType" jsonschema:"potential, verified or rejected"`
}

type SetConnectionTypeResult struct {
	ProfileA       int64          `json:"profileA"`
	ProfileB       int64          `json:"profileB"`
	ConnectionType ConnectionType `json:"connectionType"`
}

type SearchProfilesArgs struct {
	Query     string `json:"query,omitempty" jsonschema:"Text matched against names, place of birth and last known location"`
	BirthYear int    `json:"birthYear,omitempty" jsonschema:"Only profiles born in this year"`
	Age       *int   `json:"age,omitempty" jsonschema:"Only profiles born in the current year minus age; ignored when birthYear is set"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
	Offset    int    `json:"offset,omitempty"`
}

type ProfileSummary struct {
	ProfileID         int64  `json:"profileId"`
	Name              string `json:"name,omitempty"`
	PlaceOfBirth      string `json:"placeOfBirth,omitempty"`
	DateOfBirth       string `json:"dateOfBirth,omitempty"`
	LastKnownLocation string `json:"lastKnownLocation,omitempty"`
	HasFace           bool   `json:"hasFace"`
	HasVoice          bool   `json:"hasVoice"`
}

type SearchProfilesResult struct {
	Profiles []ProfileSummary `json:"profiles"`
}

type StatsArgs struct{}

type HealthArgs struct{}

type HealthResult struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	IndexedFaces int    `json:"indexedFaces"`
	PoolInUse    int    `json:"poolInUse"`
	PoolIdle     int    `json:"poolIdle"`
}
