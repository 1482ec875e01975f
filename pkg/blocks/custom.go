package blocks

import "strings"

// Owner name prefixes of skulls that display a custom block.
const (
	customBlockPrefix = "geyser_custom_block_"
	namespacedPrefix  = "heypixel:"
)

// Slimefun stores the block or item id of its heads in the bukkit values.
var bukkitValueKeys = []string{"slimefun:slimefun_block", "slimefun:slimefun_item"}

// CustomName returns the custom block name a Java skull block entity tag refers to.
//
// An owner name prefixed with "geyser_custom_block_" or "heypixel:" names the block
// after the prefix, otherwise a Slimefun block or item id in the PublicBukkitValues does.
// Names are lower case.
func CustomName(tag map[string]any) (string, bool) {
	if owner, ok := tag["SkullOwner"].(map[string]any); ok {
		if name, ok := owner["Name"].(string); ok {
			lower := strings.ToLower(name)
			for _, prefix := range []string{customBlockPrefix, namespacedPrefix} {
				if strings.HasPrefix(lower, prefix) {
					return strings.TrimPrefix(lower, prefix), true
				}
			}
		}
	}
	if values, ok := tag["PublicBukkitValues"].(map[string]any); ok {
		for _, key := range bukkitValueKeys {
			if id, ok := values[key].(string); ok {
				return strings.ToLower(id), true
			}
		}
	}
	return "", false
}
