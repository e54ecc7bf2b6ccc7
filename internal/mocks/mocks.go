// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Network() config.NetworkConfig {
	args := m.Called()
	return args.Get(0).(config.NetworkConfig)
}

func (m *MockConfig) Interpreter() config.InterpreterConfig {
	args := m.Called()
	return args.Get(0).(config.InterpreterConfig)
}

func (m *MockConfig) Output() config.OutputConfig {
	args := m.Called()
	return args.Get(0).(config.OutputConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool) {
	m.Called(b)
}

func (m *MockConfig) SetBrowserProxy(proxy string) {
	m.Called(proxy)
}

func (m *MockConfig) SetOutputDir(dir string) {
	m.Called(dir)
}

func (m *MockConfig) SetOutputFormat(format string) {
	m.Called(format)
}

// -- Browser Mocks --

// MockBrowser mocks schemas.Browser.
type MockBrowser struct {
	mock.Mock
}

var _ schemas.Browser = (*MockBrowser)(nil)

func (m *MockBrowser) FindElement(ctx context.Context, loc schemas.Locator) (schemas.Element, error) {
	args := m.Called(ctx, loc)
	if el := args.Get(0); el != nil {
		return el.(schemas.Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBrowser) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	args := m.Called(ctx, loc)
	if els := args.Get(0); els != nil {
		return els.([]schemas.Element), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBrowser) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	return m.Called(ctx, loc, timeout).Error(0)
}

func (m *MockBrowser) PageSource(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockElement mocks schemas.Element.
type MockElement struct {
	mock.Mock
}

var _ schemas.Element = (*MockElement)(nil)

func (m *MockElement) Clear(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockElement) Click(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockElement) SendKeys(ctx context.Context, keys string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) SelectByValue(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *MockElement) SelectByIndex(ctx context.Context, index int) error {
	return m.Called(ctx, index).Error(0)
}

func (m *MockElement) SelectByVisibleText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}
