package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	identityStore     IdentityStore
	taskStore         TaskStore
	sessionStore      SessionStore
	notificationStore NotificationStore
	notifier          Notifier
	claimStore        ClaimStore
	collaborator      Collaborator
	classifier        Classifier
	mentionExtractor  MentionExtractor
	resolver          AttributionResolver
	processor         MessageProcessor
	materializer      TaskMaterializer
	assembler         ContextAssembler
	chat              ChatService
	jobEnqueuer       JobEnqueuer
	meetingSource     MeetingSource
	repoSource        RepoSource
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithIdentityStore(store IdentityStore) Option {
	return func(b *serviceBuilder) {
		b.identityStore = store
	}
}

func WithTaskStore(store TaskStore) Option {
	return func(b *serviceBuilder) {
		b.taskStore = store
	}
}

func WithSessionStore(store SessionStore) Option {
	return func(b *serviceBuilder) {
		b.sessionStore = store
	}
}

func WithNotificationStore(store NotificationStore) Option {
	return func(b *serviceBuilder) {
		b.notificationStore = store
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(b *serviceBuilder) {
		b.notifier = notifier
	}
}

func WithClaimStore(store ClaimStore) Option {
	return func(b *serviceBuilder) {
		b.claimStore = store
	}
}

func WithCollaborator(collaborator Collaborator) Option {
	return func(b *serviceBuilder) {
		b.collaborator = collaborator
	}
}

func WithClassifier(classifier Classifier) Option {
	return func(b *serviceBuilder) {
		b.classifier = classifier
	}
}

func WithMentionExtractor(extractor MentionExtractor) Option {
	return func(b *serviceBuilder) {
		b.mentionExtractor = extractor
	}
}

func WithAttributionResolver(resolver AttributionResolver) Option {
	return func(b *serviceBuilder) {
		b.resolver = resolver
	}
}

func WithMessageProcessor(processor MessageProcessor) Option {
	return func(b *serviceBuilder) {
		b.processor = processor
	}
}

func WithTaskMaterializer(materializer TaskMaterializer) Option {
	return func(b *serviceBuilder) {
		b.materializer = materializer
	}
}

func WithContextAssembler(assembler ContextAssembler) Option {
	return func(b *serviceBuilder) {
		b.assembler = assembler
	}
}

func WithChatService(chat ChatService) Option {
	return func(b *serviceBuilder) {
		b.chat = chat
	}
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *serviceBuilder) {
		b.jobEnqueuer = enqueuer
	}
}

func WithMeetingSource(source MeetingSource) Option {
	return func(b *serviceBuilder) {
		b.meetingSource = source
	}
}

func WithRepoSource(source RepoSource) Option {
	return func(b *serviceBuilder) {
		b.repoSource = source
	}
}

func defaultServiceBuilder(cfg Config) serviceBuilder {
	return serviceBuilder{
		runtimeConfig: cfg,
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader returns a loader serving fixed raw values; mostly
// useful in tests and embedded hosts.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	classifier := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Classifier.Model) != "" {
		classifier["model"] = cfg.Classifier.Model
	}
	if includeZero || cfg.Classifier.ConfidenceThreshold != 0 {
		classifier["confidence_threshold"] = cfg.Classifier.ConfidenceThreshold
	}
	if includeZero || cfg.Classifier.TimeoutSeconds != 0 {
		classifier["timeout_seconds"] = cfg.Classifier.TimeoutSeconds
	}
	if len(classifier) > 0 {
		layer["classifier"] = classifier
	}

	assembler := map[string]any{}
	if includeZero || cfg.Assembler.MaxMeetings != 0 {
		assembler["max_meetings"] = cfg.Assembler.MaxMeetings
	}
	if includeZero || cfg.Assembler.MaxTasks != 0 {
		assembler["max_tasks"] = cfg.Assembler.MaxTasks
	}
	if includeZero || cfg.Assembler.MaxRepos != 0 {
		assembler["max_repos"] = cfg.Assembler.MaxRepos
	}
	if includeZero || cfg.Assembler.RuneBudget != 0 {
		assembler["rune_budget"] = cfg.Assembler.RuneBudget
	}
	if len(assembler) > 0 {
		layer["assembler"] = assembler
	}

	chat := map[string]any{}
	if includeZero || cfg.Chat.SessionCacheSize != 0 {
		chat["session_cache_size"] = cfg.Chat.SessionCacheSize
	}
	if includeZero || cfg.Chat.CollaboratorTimeoutSeconds != 0 {
		chat["collaborator_timeout_seconds"] = cfg.Chat.CollaboratorTimeoutSeconds
	}
	if includeZero || cfg.Chat.HistoryLimit != 0 {
		chat["history_limit"] = cfg.Chat.HistoryLimit
	}
	if len(chat) > 0 {
		layer["chat"] = chat
	}

	return layer
}
