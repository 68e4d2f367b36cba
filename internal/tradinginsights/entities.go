// Package tradinginsights is the trading journal application: traded
// symbols, broker accounts, positions and growth scenarios.
package tradinginsights

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
	"github.com/aiokaizen/bear-vision/internal/lava/schema"
)

// App is the namespace of the trading entities.
const App = "trading_insights"

// Symbol types.
const (
	SymbolForex     = "forex"
	SymbolCommodity = "commodity"
	SymbolStock     = "stock"
)

// Position types. Deposits and withdrawals move Amount instead of Profit.
const (
	PositionBuy      = "buy"
	PositionSell     = "sell"
	PositionDeposit  = "deposit"
	PositionWithdraw = "withdraw"
)

// DefaultPipValue is the pip value of a new symbol.
const DefaultPipValue = 0.0001

var (
	symbolTypeChoices = []schema.Choice{
		{Value: SymbolForex, Label: "Forex"},
		{Value: SymbolCommodity, Label: "Commodity"},
		{Value: SymbolStock, Label: "Stock"},
	}
	positionTypeChoices = []schema.Choice{
		{Value: PositionBuy, Label: "Buy"},
		{Value: PositionSell, Label: "Sell"},
		{Value: PositionDeposit, Label: "Deposit"},
		{Value: PositionWithdraw, Label: "Withdraw"},
	}
)

// Symbol is a traded instrument.
type Symbol struct {
	model.Base
	Name        string  `field:"name"`
	DisplayName string  `field:"display_name"`
	SymbolType  string  `field:"symbol_type"`
	PipValue    float64 `field:"pip_value"`
}

// SymbolDescriptor describes trading_insights.symbol.
var SymbolDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "Symbol",
	VerboseName:       "Symbol",
	VerboseNamePlural: "Symbols",
	MenuIcon:          "anticon anticon-dollar",
	Fields: model.WithBaseFields(
		schema.Field{Name: "name", Label: "Symbol", Kind: schema.KindString, Editable: true, Required: true, MaxLength: 256},
		schema.Field{Name: "display_name", Label: "Extended name", Kind: schema.KindString, Editable: true, MaxLength: 256},
		schema.Field{Name: "symbol_type", Label: "Type", Kind: schema.KindChoice, Editable: true, Required: true, Choices: symbolTypeChoices},
		schema.Field{Name: "pip_value", Label: "Pip value", Kind: schema.KindDecimal, Editable: true, Places: 4},
	),
	ListDisplay: []string{"name", "display_name", "symbol_type", "pip_value"},
	Ordering:    []string{"name"},
	New:         func() schema.Entity { return NewSymbol("") },
}

// NewSymbol returns a forex symbol with the default pip value.
func NewSymbol(name string) *Symbol {
	return &Symbol{Name: name, SymbolType: SymbolForex, PipValue: DefaultPipValue}
}

// Descriptor implements schema.Entity.
func (s *Symbol) Descriptor() *schema.Descriptor { return SymbolDescriptor }

func (s *Symbol) String() string {
	if s.DisplayName != "" {
		return fmt.Sprintf("%s (%s)", s.Name, s.DisplayName)
	}
	return s.Name
}

// Account is a broker trading account.
type Account struct {
	model.Base
	Name            string  `field:"name"`
	Broker          string  `field:"broker"`
	AccountID       string  `field:"account_id"`
	StartingBalance float64 `field:"starting_balance"`
}

// AccountDescriptor describes trading_insights.account.
var AccountDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "Account",
	VerboseName:       "Account",
	VerboseNamePlural: "Accounts",
	MenuIcon:          "anticon anticon-user",
	Fields: model.WithBaseFields(
		schema.Field{Name: "name", Label: "Account Name", Kind: schema.KindString, Editable: true, Required: true, MaxLength: 256},
		schema.Field{Name: "broker", Label: "Broker", Kind: schema.KindString, Editable: true, MaxLength: 256},
		schema.Field{Name: "account_id", Label: "Account ID", Kind: schema.KindString, Editable: true, MaxLength: 256},
		schema.Field{Name: "starting_balance", Label: "Starting Balance", Kind: schema.KindDecimal, Editable: true, Places: 2},
	),
	ListDisplay: []string{"name", "broker", "account_id", "starting_balance"},
	Ordering:    []string{"name"},
	New:         func() schema.Entity { return &Account{} },
}

// Descriptor implements schema.Entity.
func (a *Account) Descriptor() *schema.Descriptor { return AccountDescriptor }

func (a *Account) String() string { return a.Name }

// Position is a closed trade or a balance operation of an account.
type Position struct {
	model.Base
	Account      int64     `field:"account"`
	Symbol       int64     `field:"symbol"`
	PositionID   string    `field:"position_id"`
	PositionType string    `field:"position_type"`
	OpenTime     time.Time `field:"open_time"`
	CloseTime    time.Time `field:"close_time"`
	Volume       float64   `field:"volume"`
	OpenPrice    float64   `field:"open_price"`
	StopLoss     float64   `field:"stop_loss"`
	TakeProfit   float64   `field:"take_profit"`
	ClosePrice   float64   `field:"close_price"`
	Commission   float64   `field:"commission"`
	Swap         float64   `field:"swap"`
	Profit       float64   `field:"profit"`
	Amount       float64   `field:"amount"`
}

// PositionDescriptor describes trading_insights.position.
var PositionDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "Position",
	VerboseName:       "Position",
	VerboseNamePlural: "Positions",
	MenuIcon:          "anticon anticon-dollar",
	Fields: model.WithBaseFields(
		schema.Field{Name: "account", Label: "Account", Kind: schema.KindForeignKey, Related: App + ".account", Editable: true, Required: true},
		schema.Field{Name: "symbol", Label: "Symbol", Kind: schema.KindForeignKey, Related: App + ".symbol", Editable: true, Required: true},
		schema.Field{Name: "position_id", Label: "Position ID", Kind: schema.KindString, Editable: true, MaxLength: 256},
		schema.Field{Name: "position_type", Label: "Type", Kind: schema.KindChoice, Editable: true, Required: true, Choices: positionTypeChoices},
		schema.Field{Name: "open_time", Label: "Open Time", Kind: schema.KindDateTime, Editable: true, Required: true},
		schema.Field{Name: "close_time", Label: "Close Time", Kind: schema.KindDateTime, Editable: true, Required: true},
		schema.Field{Name: "volume", Label: "Volume", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "open_price", Label: "Open Price", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 5},
		schema.Field{Name: "stop_loss", Label: "Stop Loss", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 5},
		schema.Field{Name: "take_profit", Label: "Take Profit", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 5},
		schema.Field{Name: "close_price", Label: "Close Price", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 5},
		schema.Field{Name: "commission", Label: "Commission", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "swap", Label: "Swap", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "profit", Label: "Profit", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "amount", Label: "Amount", Kind: schema.KindDecimal, Editable: true, Places: 2, HelpText: "Deposited or withdrawn amount."},
	),
	ListDisplay: []string{"account", "symbol", "position_type", "open_time", "volume", "profit"},
	Ordering:    []string{"-open_time"},
	New:         func() schema.Entity { return &Position{} },
}

// Descriptor implements schema.Entity.
func (p *Position) Descriptor() *schema.Descriptor { return PositionDescriptor }

// IsBalanceOperation reports whether p is a deposit or a withdrawal.
func (p *Position) IsBalanceOperation() bool {
	return p.PositionType == PositionDeposit || p.PositionType == PositionWithdraw
}

// Result is the amount p added to the account balance.
func (p *Position) Result() float64 {
	if p.IsBalanceOperation() {
		return p.Amount
	}
	return p.Profit
}

func (p *Position) String() string {
	f, _ := PositionDescriptor.Field("position_type")
	return fmt.Sprintf("%s - %s - %s",
		f.ChoiceLabel(p.PositionType),
		strconv.FormatFloat(p.Result(), 'f', 2, 64),
		p.OpenTime.Format(schema.DateTimeDisplayLayout))
}

// Validate implements model.Validator.
func (p *Position) Validate() []result.FieldError {
	var errs []result.FieldError
	if !p.OpenTime.IsZero() && p.CloseTime.Before(p.OpenTime) {
		errs = append(errs, result.FieldError{Field: "close_time", Message: "The position cannot close before it opens."})
	}
	if p.Volume < 0 {
		errs = append(errs, result.FieldError{Field: "volume", Message: "The volume cannot be negative."})
	}
	return errs
}

// Scenario is a growth plan, optionally tracked against an account.
type Scenario struct {
	model.Base
	Name    string `field:"name"`
	Account *int64 `field:"account"`
}

// ScenarioDescriptor describes trading_insights.scenario.
var ScenarioDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "Scenario",
	VerboseName:       "Scenario",
	VerboseNamePlural: "Scenarios",
	MenuIcon:          "anticon anticon-file",
	Fields: model.WithBaseFields(
		schema.Field{Name: "name", Label: "Name", Kind: schema.KindString, Editable: true, Required: true, MaxLength: 256},
		schema.Field{Name: "account", Label: "Account", Kind: schema.KindForeignKey, Related: App + ".account", Editable: true, Nullable: true},
	),
	ListDisplay: []string{"name", "account", "created_at"},
	Ordering:    []string{"name"},
	New:         func() schema.Entity { return &Scenario{} },
}

// Descriptor implements schema.Entity.
func (s *Scenario) Descriptor() *schema.Descriptor { return ScenarioDescriptor }

func (s *Scenario) String() string { return s.Name }

// ScenarioLine is one period of a scenario.
type ScenarioLine struct {
	model.Base
	Scenario               int64     `field:"scenario"`
	StartDate              time.Time `field:"start_date"`
	EndDate                time.Time `field:"end_date"`
	StartAmount            float64   `field:"start_amount"`
	TargetAmount           float64   `field:"target_amount"`
	DailyProfitRatio       float64   `field:"daily_profit_ratio"`
	WeeklyWithdrawalAmount float64   `field:"weekly_withdrawal_amount"`

	scenario *Scenario
}

// ScenarioLineDescriptor describes trading_insights.scenarioline.
var ScenarioLineDescriptor = &schema.Descriptor{
	App:               App,
	Name:              "ScenarioLine",
	VerboseName:       "Scenario Line",
	VerboseNamePlural: "Scenario Lines",
	MenuIcon:          "anticon anticon-ordered-list",
	Fields: model.WithBaseFields(
		schema.Field{Name: "scenario", Label: "Scenario", Kind: schema.KindForeignKey, Related: App + ".scenario", Editable: true, Required: true},
		schema.Field{Name: "start_date", Label: "Start Date", Kind: schema.KindDate, Editable: true, Required: true},
		schema.Field{Name: "end_date", Label: "End Date", Kind: schema.KindDate, Editable: true, Required: true},
		schema.Field{Name: "start_amount", Label: "Start Amount", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "target_amount", Label: "Target Amount", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "daily_profit_ratio", Label: "Daily Target Profit", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
		schema.Field{Name: "weekly_withdrawal_amount", Label: "Weekly Withdrawal Amount", Kind: schema.KindDecimal, Editable: true, Required: true, Places: 2},
	),
	ListDisplay: []string{"scenario", "start_date", "end_date", "start_amount", "target_amount"},
	Ordering:    []string{"scenario", "start_date"},
	New:         func() schema.Entity { return &ScenarioLine{} },
}

// Descriptor implements schema.Entity.
func (l *ScenarioLine) Descriptor() *schema.Descriptor { return ScenarioLineDescriptor }

// Hydrate implements schema.Hydrator by loading the parent scenario.
func (l *ScenarioLine) Hydrate(ctx context.Context, load schema.Loader) error {
	if l.Scenario == 0 {
		l.scenario = nil
		return nil
	}
	e, err := load(ctx, ScenarioDescriptor.Key(), l.Scenario)
	if err != nil {
		return fmt.Errorf("failed to load scenario %d: %w", l.Scenario, err)
	}
	s, ok := e.(*Scenario)
	if !ok {
		return fmt.Errorf("unexpected scenario type %T", e)
	}
	l.scenario = s
	return nil
}

// SetScenario attaches the parent scenario.
func (l *ScenarioLine) SetScenario(s *Scenario) {
	l.scenario = s
	l.Scenario = s.PK()
}

func (l *ScenarioLine) String() string {
	name := strconv.FormatInt(l.Scenario, 10)
	if l.scenario != nil {
		name = l.scenario.Name
	}
	return fmt.Sprintf("%s - %s", name, l.StartDate.Format("02/01/06"))
}

// Validate implements model.Validator.
func (l *ScenarioLine) Validate() []result.FieldError {
	if !l.StartDate.IsZero() && l.EndDate.Before(l.StartDate) {
		return []result.FieldError{{Field: "end_date", Message: "The end date cannot be before the start date."}}
	}
	return nil
}

// Descriptors returns the trading entities in menu order.
func Descriptors() []*schema.Descriptor {
	return []*schema.Descriptor{
		AccountDescriptor,
		PositionDescriptor,
		SymbolDescriptor,
		ScenarioDescriptor,
		ScenarioLineDescriptor,
	}
}
