package bindings

// Processor maps one binding onto flat configuration properties.
// Implementations only add entries relevant to the binding; returning an error aborts post-processing.
type Processor interface {
	Process(binding Binding, properties map[string]string) error
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(binding Binding, properties map[string]string) error

func (f ProcessorFunc) Process(binding Binding, properties map[string]string) error {
	return f(binding, properties)
}

// DefaultProcessors returns the built-in processors, one per supported binding type.
func DefaultProcessors() []Processor {
	return []Processor{
		&ElasticsearchProcessor{},
		&KafkaProcessor{},
		&MongoDBProcessor{},
		&MySQLProcessor{},
		&PostgreSQLProcessor{},
		&RabbitMQProcessor{},
		&RedisProcessor{},
		&VaultProcessor{},
	}
}
