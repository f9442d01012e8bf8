package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/salesforce"
)

type mockNotion struct {
	mock.Mock
}

func (m *mockNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotion) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotion) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

type fakeSF struct {
	existing []salesforce.Lead
	inserted map[string]any
	updated  map[string]any
	updateID string
	err      error
}

var _ salesforce.Client = (*fakeSF)(nil)

func (f *fakeSF) Query(_ context.Context, _ string, out any) error {
	if f.err != nil {
		return f.err
	}
	*(out.(*[]salesforce.Lead)) = f.existing
	return nil
}

func (f *fakeSF) InsertOne(_ context.Context, _ string, record map[string]any) (string, error) {
	f.inserted = record
	return "00QNEW", nil
}

func (f *fakeSF) UpdateOne(_ context.Context, _ string, id string, fields map[string]any) error {
	f.updateID = id
	f.updated = fields
	return nil
}

func approved() *model.ValidationResult {
	yes := true
	size := 3
	return &model.ValidationResult{
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "5551234567",
		Address:     "1 Main St",
		City:        "Springfield",
		State:       "IL",
		Zip:         "62701",
		Status:      model.ClassificationApproved,
		AutoInsurance: model.AutoInsurance{
			MainVehicle:     &model.Vehicle{Year: "2019", Make: "Honda", Model: "Civic"},
			CurrentProvider: "Geico",
		},
		HealthInsurance: model.HealthInsurance{Interested: &yes, HouseholdSize: &size},
	}
}

func flagged() *model.ValidationResult {
	r := approved()
	r.FlagForReview("Failed to retrieve identity data")
	return r
}

type recordingSink struct {
	name    string
	accepts bool
	err     error
	got     []Delivery
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Accepts(*model.ValidationResult) bool { return r.accepts }

func (r *recordingSink) Deliver(_ context.Context, d Delivery) error {
	r.got = append(r.got, d)
	return r.err
}

func TestDispatch(t *testing.T) {
	a := &recordingSink{name: "a", accepts: true}
	b := &recordingSink{name: "b", accepts: false}
	c := &recordingSink{name: "c", accepts: true, err: errors.New("down")}

	out := Dispatch(context.Background(), []Sink{a, b, c}, Delivery{Recording: "x.wav", Result: approved()})
	assert.Equal(t, []Outcome{
		{Sink: "a", Delivered: true},
		{Sink: "c", Error: "down"},
	}, out)
	assert.Len(t, a.got, 1)
	assert.Empty(t, b.got)

	assert.Nil(t, Dispatch(context.Background(), []Sink{a}, Delivery{}))
}

func TestInterestSummary(t *testing.T) {
	got := interestSummary(approved())
	assert.Equal(t, "Auto: 2019 Honda Civic\nCurrent auto provider: Geico\nHealth: household of 3", got)
	assert.Empty(t, interestSummary(&model.ValidationResult{}))
}

func TestNotionReview_Accepts(t *testing.T) {
	n := NewNotionReview(nil, "db")
	assert.False(t, n.Accepts(approved()))
	assert.True(t, n.Accepts(flagged()))
	assert.True(t, n.Accepts(&model.ValidationResult{Status: model.ClassificationNeedsReview}))
	assert.Equal(t, "notion", n.Name())
}

func TestNotionReview_Deliver(t *testing.T) {
	mc := new(mockNotion)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		title, ok := req.Properties[propName].(notionapi.TitleProperty)
		if !ok || title.Title[0].Text.Content != "Jane Doe" {
			return false
		}
		reasons := req.Properties[propReasons].(notionapi.RichTextProperty)
		key := req.Properties[propRecording].(notionapi.RichTextProperty)
		return reasons.RichText[0].Text.Content == "Failed to retrieve identity data" &&
			key.RichText[0].Text.Content == "5551234567.wav"
	})).Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	n := NewNotionReview(mc, "db-review")
	err := n.Deliver(ctx, Delivery{RunID: "run-1", Recording: "5551234567.wav", Result: flagged()})
	require.NoError(t, err)
	mc.AssertExpectations(t)
}

func TestNotionReview_TitleFallsBackToRecording(t *testing.T) {
	props := reviewProperties(Delivery{Recording: "call.wav", Result: &model.ValidationResult{}})
	assert.Equal(t, "call.wav", props[propName].(notionapi.TitleProperty).Title[0].Text.Content)
}

func TestNotionReview_DeliverError(t *testing.T) {
	mc := new(mockNotion)
	mc.On("QueryDatabase", mock.Anything, "db-review", mock.Anything).Return(nil, assert.AnError)

	err := NewNotionReview(mc, "db-review").Deliver(context.Background(), Delivery{Recording: "a.wav", Result: flagged()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink: notion review")
}

func TestSalesforceLead_Accepts(t *testing.T) {
	s := NewSalesforceLead(nil, "")
	assert.Equal(t, DefaultLeadSource, s.leadSource)
	assert.True(t, s.Accepts(approved()))
	assert.False(t, s.Accepts(flagged()))

	noLast := approved()
	noLast.LastName = ""
	assert.False(t, s.Accepts(noLast))

	rejected := approved()
	rejected.Status = model.ClassificationRejected
	assert.False(t, s.Accepts(rejected))
}

func TestSalesforceLead_Creates(t *testing.T) {
	sf := &fakeSF{}
	s := NewSalesforceLead(sf, "Inbound Calls")

	require.NoError(t, s.Deliver(context.Background(), Delivery{Recording: "a.wav", Result: approved()}))
	require.NotNil(t, sf.inserted)
	assert.Equal(t, "Doe", sf.inserted["LastName"])
	assert.Equal(t, "Jane Doe Household", sf.inserted["Company"])
	assert.Equal(t, "Inbound Calls", sf.inserted["LeadSource"])
	assert.Equal(t, "62701", sf.inserted["PostalCode"])
	assert.NotContains(t, sf.inserted, "Email")
}

func TestSalesforceLead_UpdatesExisting(t *testing.T) {
	sf := &fakeSF{existing: []salesforce.Lead{{ID: "00Q1"}}}
	s := NewSalesforceLead(sf, "")

	require.NoError(t, s.Deliver(context.Background(), Delivery{Recording: "a.wav", Result: approved()}))
	assert.Nil(t, sf.inserted)
	assert.Equal(t, "00Q1", sf.updateID)
	assert.Equal(t, "Springfield", sf.updated["City"])
}

func TestSalesforceLead_LookupError(t *testing.T) {
	sf := &fakeSF{err: errors.New("session expired")}
	err := NewSalesforceLead(sf, "").Deliver(context.Background(), Delivery{Result: approved()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink: salesforce lookup")
}
